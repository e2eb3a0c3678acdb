package repl

import (
	"fmt"
	"io"
	"strings"

	"order-engine/internal/app"
	"order-engine/internal/core"
)

func printCustomers(out io.Writer, result *app.CustomerListResult, companyCode string) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 84))
	fmt.Fprintf(out, "  CUSTOMERS - Company %s\n", companyCode)
	fmt.Fprintln(out, strings.Repeat("=", 84))
	if len(result.Customers) == 0 {
		fmt.Fprintln(out, "  No customers found.")
		fmt.Fprintln(out, strings.Repeat("=", 84))
		return
	}
	fmt.Fprintf(out, "  %-8s %-24s %-7s %14s %14s  %s\n", "CODE", "NAME", "TYPE", "CREDIT LIMIT", "OUTSTANDING", "FLAGS")
	fmt.Fprintln(out, strings.Repeat("-", 84))
	for _, c := range result.Customers {
		flags := ""
		if c.CreditBlocked {
			flags = "BLOCKED"
		}
		fmt.Fprintf(out, "  %-8s %-24s %-7s %14s %14s  %s\n",
			c.Code, truncate(c.Name, 24), c.CustomerType, c.CreditLimit.StringFixed(2), c.OutstandingBalance.StringFixed(2), flags)
	}
	fmt.Fprintln(out, strings.Repeat("=", 84))
}

func printProducts(out io.Writer, result *app.ProductListResult, companyCode string) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 66))
	fmt.Fprintf(out, "  PRODUCTS - Company %s\n", companyCode)
	fmt.Fprintln(out, strings.Repeat("=", 66))
	if len(result.Products) == 0 {
		fmt.Fprintln(out, "  No products found.")
		fmt.Fprintln(out, strings.Repeat("=", 66))
		return
	}
	fmt.Fprintf(out, "  %-8s %-30s %-6s %14s\n", "CODE", "NAME", "UNIT", "PRICE")
	fmt.Fprintln(out, strings.Repeat("-", 66))
	for _, p := range result.Products {
		fmt.Fprintf(out, "  %-8s %-30s %-6s %14s\n", p.Code, truncate(p.Name, 30), p.Unit, p.SellingPrice.StringFixed(2))
	}
	fmt.Fprintln(out, strings.Repeat("=", 66))
}

func printFormulas(out io.Writer, result *app.FormulaListResult) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 66))
	fmt.Fprintln(out, "  FORMULAS")
	fmt.Fprintln(out, strings.Repeat("=", 66))
	if len(result.Formulas) == 0 {
		fmt.Fprintln(out, "  No formulas found.")
		fmt.Fprintln(out, strings.Repeat("=", 66))
		return
	}
	fmt.Fprintf(out, "  %-4s %-10s %-28s %-8s %6s\n", "ID", "CODE", "NAME", "ACTIVE", "USED")
	fmt.Fprintln(out, strings.Repeat("-", 66))
	for _, f := range result.Formulas {
		active := "yes"
		if !f.IsActive {
			active = "no"
		}
		fmt.Fprintf(out, "  %-4d %-10s %-28s %-8s %6d\n", f.ID, f.Code, truncate(f.Name, 28), active, f.UsageCount)
	}
	fmt.Fprintln(out, strings.Repeat("=", 66))
}

func printOrders(out io.Writer, result *app.OrderListResult) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 86))
	fmt.Fprintf(out, "  SALES ORDERS - Company %s\n", result.CompanyCode)
	fmt.Fprintln(out, strings.Repeat("=", 86))
	if len(result.Orders) == 0 {
		fmt.Fprintln(out, "  No orders found.")
		fmt.Fprintln(out, strings.Repeat("=", 86))
		return
	}
	fmt.Fprintf(out, "  %-4s %-16s %-8s %-7s %-10s %-11s %14s\n", "ID", "NUMBER", "CUSTOMER", "PAYMENT", "STATUS", "FULFILLMENT", "TOTAL")
	fmt.Fprintln(out, strings.Repeat("-", 86))
	for _, o := range result.Orders {
		fmt.Fprintf(out, "  %-4d %-16s %-8s %-7s %-10s %-11s %14s\n",
			o.ID, o.OrderNumber, o.CustomerCode, o.PaymentType, o.Status, o.FulfillmentStatus, o.TotalAmount.StringFixed(2))
	}
	fmt.Fprintln(out, strings.Repeat("=", 86))
}

func printOrderDetail(out io.Writer, o *core.SalesOrder) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Order:       %s (ID %d)\n", o.OrderNumber, o.ID)
	fmt.Fprintf(out, "  Customer:    %s %s\n", o.CustomerCode, o.CustomerName)
	fmt.Fprintf(out, "  Payment:     %s\n", o.PaymentType)
	fmt.Fprintf(out, "  Status:      %s / %s\n", o.Status, o.FulfillmentStatus)
	if o.CreditAvailable != nil {
		fmt.Fprintf(out, "  Credit snap: %s\n", o.CreditAvailable.StringFixed(2))
	}
	if o.ApprovalReason != "" {
		fmt.Fprintf(out, "  Approval:    %s\n", o.ApprovalReason)
	}
	if o.CancellationReason != "" {
		fmt.Fprintf(out, "  Cancelled:   %s\n", o.CancellationReason)
	}
	if len(o.Items) > 0 {
		fmt.Fprintln(out, strings.Repeat("-", 72))
		fmt.Fprintf(out, "  %-3s %-8s %-26s %10s %10s %10s\n", "#", "PRODUCT", "NAME", "QTY", "PRICE", "AMOUNT")
		for _, it := range o.Items {
			fmt.Fprintf(out, "  %-3d %-8s %-26s %10s %10s %10s\n",
				it.Sequence, it.ProductCode, truncate(it.ProductName, 26), it.Quantity.String(), it.UnitPrice.StringFixed(2), it.TotalAmount.StringFixed(2))
		}
	}
	fmt.Fprintln(out, strings.Repeat("-", 72))
	fmt.Fprintf(out, "  %-52s %18s\n", "Subtotal", o.Subtotal.StringFixed(2))
	fmt.Fprintf(out, "  %-52s %18s\n", "Discount", o.DiscountAmount.StringFixed(2))
	fmt.Fprintf(out, "  %-52s %18s\n", "Tax @ "+o.TaxRate.String()+"%", o.TaxAmount.StringFixed(2))
	fmt.Fprintf(out, "  %-52s %18s\n", "Total", o.TotalAmount.StringFixed(2))
}

func printWarehouses(out io.Writer, result *app.WarehouseListResult, companyCode string) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 50))
	fmt.Fprintf(out, "  WAREHOUSES - Company %s\n", companyCode)
	fmt.Fprintln(out, strings.Repeat("=", 50))
	for _, w := range result.Warehouses {
		fmt.Fprintf(out, "  %-8s %-40s\n", w.Code, w.Name)
	}
	fmt.Fprintln(out, strings.Repeat("=", 50))
}

func printStockLevels(out io.Writer, result *app.StockResult) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 84))
	fmt.Fprintf(out, "  STOCK LEVELS - Company %s\n", result.CompanyCode)
	fmt.Fprintln(out, strings.Repeat("=", 84))
	if len(result.Levels) == 0 {
		fmt.Fprintln(out, "  No inventory records found.")
		fmt.Fprintln(out, strings.Repeat("=", 84))
		return
	}
	fmt.Fprintf(out, "  %-8s %-24s %-8s %12s %12s %12s\n", "PRODUCT", "NAME", "WH", "ON HAND", "RESERVED", "AVAILABLE")
	fmt.Fprintln(out, strings.Repeat("-", 84))
	for _, l := range result.Levels {
		fmt.Fprintf(out, "  %-8s %-24s %-8s %12s %12s %12s\n",
			l.ProductCode, truncate(l.ProductName, 24), l.WarehouseCode, l.OnHand.String(), l.Reserved.String(), l.Available.String())
	}
	fmt.Fprintln(out, strings.Repeat("=", 84))
}

func printCredit(out io.Writer, result *app.CreditCheckResult) {
	c := result.Customer
	d := result.Decision
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Customer:    %s %s (%s)\n", c.Code, c.Name, c.CustomerType)
	fmt.Fprintf(out, "  Limit:       %s\n", c.CreditLimit.StringFixed(2))
	fmt.Fprintf(out, "  Outstanding: %s\n", c.OutstandingBalance.StringFixed(2))
	fmt.Fprintf(out, "  Available:   %s\n", d.AvailableCredit.StringFixed(2))
	if d.Allowed {
		fmt.Fprintln(out, "  Decision:    ALLOWED")
	} else {
		fmt.Fprintf(out, "  Decision:    REFUSED (%s)\n", d.Reason)
	}
}

func printSettings(out io.Writer, result *app.SettingsResult) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Company:          %s\n", result.CompanyCode)
	fmt.Fprintf(out, "  Require approval: %t\n", result.Config.RequireApproval)
	fmt.Fprintf(out, "  Threshold:        %s\n", result.Config.Threshold.StringFixed(2))
	fmt.Fprintf(out, "  Default tax rate: %s%%\n", result.Config.DefaultTaxRate.String())
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  /customers                         List customers with credit position")
	fmt.Fprintln(out, "  /credit <customer> [amount]        Evaluate credit for an amount")
	fmt.Fprintln(out, "  /products                          List products")
	fmt.Fprintln(out, "  /formulas                          List formulas")
	fmt.Fprintln(out, "  /orders [status]                   List sales orders")
	fmt.Fprintln(out, "  /order <ref>                       Show one order")
	fmt.Fprintln(out, "  /new-order <customer> <cash|credit> Create an order interactively")
	fmt.Fprintln(out, "  /approve <ref> [reason]            Approve a pending order")
	fmt.Fprintln(out, "  /reject <ref> [reason]             Reject a pending order")
	fmt.Fprintln(out, "  /fulfill <ref> <status> [tracking] Move an approved order along fulfillment")
	fmt.Fprintln(out, "  /warehouses                        List warehouses")
	fmt.Fprintln(out, "  /stock                             Show stock levels")
	fmt.Fprintln(out, "  /receive <product> <qty> [wh]      Receive stock")
	fmt.Fprintln(out, "  /settings                          Show workflow settings")
	fmt.Fprintln(out, "  /help                              Show this help")
	fmt.Fprintln(out, "  /exit                              Quit")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "~"
}
