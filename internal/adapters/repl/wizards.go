package repl

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"order-engine/internal/app"

	"github.com/shopspring/decimal"
)

// newOrder runs an interactive order creation session. The operator either names a formula
// and a total quantity, or enters direct lines.
func (c *console) newOrder(ctx context.Context, customerCode, paymentType string) error {
	out := c.out
	fmt.Fprintf(out, "Creating %s order for customer: %s\n", paymentType, customerCode)

	req := app.CreateOrderRequest{
		CompanyCode:  c.companyCode,
		CustomerCode: customerCode,
		PaymentType:  paymentType,
		Actor:        c.actor,
	}

	fmt.Fprint(out, "Formula ID (leave blank for direct lines): ")
	formulaRaw := c.readLine()
	if formulaRaw != "" {
		id, err := strconv.Atoi(formulaRaw)
		if err != nil {
			fmt.Fprintln(out, "Invalid formula ID. Order not created.")
			return nil
		}
		fmt.Fprint(out, "Total quantity: ")
		qty, err := decimal.NewFromString(c.readLine())
		if err != nil {
			fmt.Fprintln(out, "Invalid quantity. Order not created.")
			return nil
		}
		req.FormulaID = &id
		req.TotalQuantity = qty
	} else {
		lines, ok := c.readLines()
		if !ok {
			fmt.Fprintln(out, "Order creation cancelled.")
			return nil
		}
		if len(lines) == 0 {
			fmt.Fprintln(out, "No lines entered. Order not created.")
			return nil
		}
		req.Lines = lines
	}

	fmt.Fprint(out, "Discount amount (optional): ")
	if raw := c.readLine(); raw != "" {
		discount, err := decimal.NewFromString(raw)
		if err != nil {
			fmt.Fprintln(out, "Invalid discount. Order not created.")
			return nil
		}
		req.DiscountAmount = discount
	}

	fmt.Fprint(out, "Notes (optional): ")
	req.Notes = c.readLine()

	result, err := c.svc.CreateOrder(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\nOrder %s created (Status: %s)\n", result.Order.OrderNumber, strings.ToUpper(string(result.Order.Status)))
	printOrderDetail(out, result.Order)
	if result.ApprovalRequired {
		fmt.Fprintf(out, "Order total reaches the approval threshold. Use '/approve %s' to approve it.\n", result.Order.OrderNumber)
	}
	return nil
}

// readLines collects direct order lines until 'done'. It returns false on 'cancel'.
func (c *console) readLines() ([]app.OrderLineInput, bool) {
	out := c.out
	fmt.Fprintln(out, "Enter order lines. Type 'done' when finished, 'cancel' to abort.")
	fmt.Fprintln(out, "Format per line: <product-code> <quantity> [unit-price]")

	var lines []app.OrderLineInput
	lineNum := 1
	for {
		fmt.Fprintf(out, "  Line %d: ", lineNum)
		raw := c.readLine()
		switch strings.ToLower(raw) {
		case "cancel":
			return nil, false
		case "done":
			return lines, true
		case "":
			if !c.more() {
				return lines, true
			}
			continue
		}

		parts := strings.Fields(raw)
		if len(parts) < 2 {
			fmt.Fprintln(out, "  Invalid format. Use: <product-code> <quantity> [unit-price]")
			continue
		}
		qty, err := decimal.NewFromString(parts[1])
		if err != nil || !qty.IsPositive() {
			fmt.Fprintln(out, "  Invalid quantity.")
			continue
		}
		line := app.OrderLineInput{ProductCode: strings.ToUpper(parts[0]), Quantity: qty}
		if len(parts) >= 3 {
			price, err := decimal.NewFromString(parts[2])
			if err != nil || price.IsNegative() {
				fmt.Fprintln(out, "  Invalid price.")
				continue
			}
			line.UnitPrice = &price
		}
		lines = append(lines, line)
		lineNum++
	}
}

func (c *console) readLine() string {
	s, _ := c.reader.ReadString('\n')
	return strings.TrimSpace(s)
}

// more reports whether unread input remains.
func (c *console) more() bool {
	_, err := c.reader.Peek(1)
	return err == nil
}
