package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"order-engine/internal/app"

	"github.com/shopspring/decimal"
)

// Run executes a one-shot CLI command against the default company.
// args is os.Args[1:]; the first element is the subcommand name. Results are written to out as JSON.
func Run(ctx context.Context, svc app.ApplicationService, actor app.Actor, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("no command given\n%s", usage)
	}
	company, err := svc.LoadDefaultCompany(ctx)
	if err != nil {
		return fmt.Errorf("load company: %w", err)
	}
	code := company.CompanyCode

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	switch args[0] {
	case "orders":
		var status *string
		if len(args) > 1 {
			status = &args[1]
		}
		result, err := svc.ListOrders(ctx, code, status)
		if err != nil {
			return err
		}
		return enc.Encode(result.Orders)

	case "order":
		if len(args) < 2 {
			return fmt.Errorf("usage: order <ref>")
		}
		result, err := svc.GetOrder(ctx, args[1], code)
		if err != nil {
			return err
		}
		return enc.Encode(result.Order)

	case "approve", "reject":
		if len(args) < 2 {
			return fmt.Errorf("usage: %s <ref> [reason]", args[0])
		}
		req := app.OrderActionRequest{
			CompanyCode: code,
			Ref:         args[1],
			Reason:      strings.Join(args[2:], " "),
			Actor:       actor,
		}
		var result *app.OrderResult
		if args[0] == "approve" {
			result, err = svc.ApproveOrder(ctx, req)
		} else {
			result, err = svc.RejectOrder(ctx, req)
		}
		if err != nil {
			return err
		}
		return enc.Encode(result.Order)

	case "fulfill":
		if len(args) < 3 {
			return fmt.Errorf("usage: fulfill <ref> <status> [tracking]")
		}
		req := app.FulfillOrderRequest{CompanyCode: code, Ref: args[1], Status: args[2], Actor: actor}
		if len(args) > 3 {
			req.TrackingNumber = args[3]
		}
		result, err := svc.FulfillOrder(ctx, req)
		if err != nil {
			return err
		}
		return enc.Encode(result.Order)

	case "stock":
		result, err := svc.GetStockLevels(ctx, code)
		if err != nil {
			return err
		}
		return enc.Encode(result.Levels)

	case "receive":
		if len(args) < 3 {
			return fmt.Errorf("usage: receive <product> <qty> [warehouse]")
		}
		qty, err := decimal.NewFromString(args[2])
		if err != nil {
			return fmt.Errorf("invalid quantity %q: %w", args[2], err)
		}
		req := app.ReceiveStockRequest{CompanyCode: code, ProductCode: args[1], Qty: qty, Actor: actor}
		if len(args) > 3 {
			req.WarehouseCode = args[3]
		}
		if err := svc.ReceiveStock(ctx, req); err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "Received %s of %s.\n", qty.String(), args[1])
		return err

	case "credit":
		if len(args) < 2 {
			return fmt.Errorf("usage: credit <customer> [amount]")
		}
		amount := decimal.Zero
		if len(args) > 2 {
			if amount, err = decimal.NewFromString(args[2]); err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[2], err)
			}
		}
		result, err := svc.CheckCredit(ctx, code, args[1], amount)
		if err != nil {
			return err
		}
		return enc.Encode(result.Decision)

	case "settings":
		result, err := svc.GetSettings(ctx, code)
		if err != nil {
			return err
		}
		return enc.Encode(result.Config)

	default:
		return fmt.Errorf("unknown command: %s\n%s", args[0], usage)
	}
}

const usage = `Available: orders [status], order <ref>, approve <ref> [reason], reject <ref> [reason],
fulfill <ref> <status> [tracking], stock, receive <product> <qty> [warehouse], credit <customer> [amount], settings`
