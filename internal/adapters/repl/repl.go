package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"order-engine/internal/app"

	"github.com/shopspring/decimal"
)

var errExit = errors.New("exit")

// Run starts the interactive operator console.
// Every line must be a slash command; commands run as actor against the default company.
func Run(ctx context.Context, svc app.ApplicationService, actor app.Actor, reader *bufio.Reader, out io.Writer) error {
	company, err := svc.LoadDefaultCompany(ctx)
	if err != nil {
		return fmt.Errorf("load company: %w", err)
	}

	fmt.Fprintln(out, "Order Engine")
	fmt.Fprintf(out, "Company: %s - %s (%s)\n", company.CompanyCode, company.Name, company.BaseCurrency)
	fmt.Fprintln(out, "Type /help for commands.")
	fmt.Fprintln(out, strings.Repeat("-", 70))

	c := &console{svc: svc, actor: actor, companyCode: company.CompanyCode, reader: reader, out: out}

	for {
		fmt.Fprint(out, "\n> ")
		input, readErr := reader.ReadString('\n')
		input = strings.TrimSpace(input)

		if input != "" {
			if !strings.HasPrefix(input, "/") {
				fmt.Fprintln(out, "Commands start with '/'. Type /help for the list.")
			} else if err := c.dispatch(ctx, input); err != nil {
				if errors.Is(err, errExit) {
					fmt.Fprintln(out, "Goodbye!")
					return nil
				}
				fmt.Fprintf(out, "Error: %v\n", err)
			}
		}

		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return readErr
		}
	}
}

type console struct {
	svc         app.ApplicationService
	actor       app.Actor
	companyCode string
	reader      *bufio.Reader
	out         io.Writer
}

func (c *console) dispatch(ctx context.Context, input string) error {
	tokens := strings.Fields(strings.TrimPrefix(input, "/"))
	if len(tokens) == 0 {
		return nil
	}
	cmd := strings.ToLower(tokens[0])
	args := tokens[1:]
	out := c.out

	switch cmd {
	case "customers":
		result, err := c.svc.ListCustomers(ctx, c.companyCode)
		if err != nil {
			return err
		}
		printCustomers(out, result, c.companyCode)

	case "credit":
		if len(args) < 1 {
			fmt.Fprintln(out, "Usage: /credit <customer-code> [amount]")
			return nil
		}
		amount := decimal.Zero
		if len(args) >= 2 {
			parsed, err := decimal.NewFromString(args[1])
			if err != nil {
				fmt.Fprintf(out, "Invalid amount: %s\n", args[1])
				return nil
			}
			amount = parsed
		}
		result, err := c.svc.CheckCredit(ctx, c.companyCode, strings.ToUpper(args[0]), amount)
		if err != nil {
			return err
		}
		printCredit(out, result)

	case "products":
		result, err := c.svc.ListProducts(ctx, c.companyCode)
		if err != nil {
			return err
		}
		printProducts(out, result, c.companyCode)

	case "formulas":
		result, err := c.svc.ListFormulas(ctx, c.companyCode)
		if err != nil {
			return err
		}
		printFormulas(out, result)

	case "orders":
		var status *string
		if len(args) > 0 {
			s := strings.ToLower(args[0])
			status = &s
		}
		result, err := c.svc.ListOrders(ctx, c.companyCode, status)
		if err != nil {
			return err
		}
		printOrders(out, result)

	case "order":
		if len(args) < 1 {
			fmt.Fprintln(out, "Usage: /order <order-ref>")
			return nil
		}
		result, err := c.svc.GetOrder(ctx, args[0], c.companyCode)
		if err != nil {
			return err
		}
		printOrderDetail(out, result.Order)

	case "new-order":
		if len(args) < 2 {
			fmt.Fprintln(out, "Usage: /new-order <customer-code> <cash|credit>")
			return nil
		}
		return c.newOrder(ctx, strings.ToUpper(args[0]), strings.ToLower(args[1]))

	case "approve", "reject":
		if len(args) < 1 {
			fmt.Fprintf(out, "Usage: /%s <order-ref> [reason]\n", cmd)
			return nil
		}
		req := app.OrderActionRequest{
			CompanyCode: c.companyCode,
			Ref:         args[0],
			Reason:      strings.Join(args[1:], " "),
			Actor:       c.actor,
		}
		var result *app.OrderResult
		var err error
		if cmd == "approve" {
			result, err = c.svc.ApproveOrder(ctx, req)
		} else {
			result, err = c.svc.RejectOrder(ctx, req)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Order %s is now %s.\n", result.Order.OrderNumber, strings.ToUpper(string(result.Order.Status)))

	case "fulfill":
		if len(args) < 2 {
			fmt.Fprintln(out, "Usage: /fulfill <order-ref> <processing|shipped|delivered> [tracking]")
			return nil
		}
		req := app.FulfillOrderRequest{
			CompanyCode: c.companyCode,
			Ref:         args[0],
			Status:      strings.ToLower(args[1]),
			Actor:       c.actor,
		}
		if len(args) >= 3 {
			req.TrackingNumber = args[2]
		}
		result, err := c.svc.FulfillOrder(ctx, req)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Order %s: %s / %s.\n", result.Order.OrderNumber, result.Order.Status, result.Order.FulfillmentStatus)

	case "warehouses":
		result, err := c.svc.ListWarehouses(ctx, c.companyCode)
		if err != nil {
			return err
		}
		printWarehouses(out, result, c.companyCode)

	case "stock":
		result, err := c.svc.GetStockLevels(ctx, c.companyCode)
		if err != nil {
			return err
		}
		printStockLevels(out, result)

	case "receive":
		if len(args) < 2 {
			fmt.Fprintln(out, "Usage: /receive <product-code> <qty> [warehouse-code]")
			fmt.Fprintln(out, "  Receives into the first active warehouse when none is given.")
			return nil
		}
		qty, err := decimal.NewFromString(args[1])
		if err != nil || !qty.IsPositive() {
			fmt.Fprintf(out, "Invalid quantity: %s\n", args[1])
			return nil
		}
		req := app.ReceiveStockRequest{
			CompanyCode: c.companyCode,
			ProductCode: strings.ToUpper(args[0]),
			Qty:         qty,
			Actor:       c.actor,
		}
		if len(args) >= 3 {
			req.WarehouseCode = strings.ToUpper(args[2])
		}
		if err := c.svc.ReceiveStock(ctx, req); err != nil {
			return err
		}
		fmt.Fprintf(out, "Received %s units of %s.\n", qty.String(), req.ProductCode)

	case "settings":
		result, err := c.svc.GetSettings(ctx, c.companyCode)
		if err != nil {
			return err
		}
		printSettings(out, result)

	case "help", "h":
		printHelp(out)

	case "exit", "quit", "q":
		return errExit

	default:
		fmt.Fprintf(out, "Unknown command: /%s  (type /help for all commands)\n", cmd)
	}
	return nil
}
