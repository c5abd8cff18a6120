package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/shophuyvan/shophuyvan-sub002/internal/application/cartclient"
	"github.com/shophuyvan/shophuyvan-sub002/internal/domain/cart"
)

// ErrUsage marks a malformed command line
var ErrUsage = errors.New("usage")

type command struct {
	usage   string
	summary string
	run     func(ctx context.Context, c *Client, out io.Writer, args []string) error
}

var commands = map[string]command{
	"add": {
		usage:   "add [-name N] [-variant V] [-price P] [-original-price P] <product-id> [qty]",
		summary: "Add a product, summing quantity with an existing line",
		run:     runAdd,
	},
	"remove": {usage: "remove <key>", summary: "Remove a line", run: runRemove},
	"set":    {usage: "set <key> <qty>", summary: "Set a line quantity; 0 removes it", run: runSet},
	"list":   {usage: "list", summary: "Show the local cart", run: runList},
	"sync":   {usage: "sync", summary: "Pull then push immediately", run: runSync},
	"clear":  {usage: "clear", summary: "Empty the cart here and on the server", run: runClear},
	"session": {
		usage:   "session",
		summary: "Print the cart session id",
		run:     runSession,
	},
	"watch": {usage: "watch", summary: "Live cart view with background sync", run: runWatch},
}

// Run executes one cartctl command
func Run(ctx context.Context, c *Client, out io.Writer, args []string) error {
	if len(args) == 0 {
		PrintUsage(out)
		return ErrUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		PrintUsage(out)
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}
	if err := cmd.run(ctx, c, out, args[1:]); err != nil {
		if errors.Is(err, ErrUsage) {
			fmt.Fprintf(out, "usage: cartctl %s\n", cmd.usage)
		}
		return err
	}
	return nil
}

// PrintUsage lists the commands
func PrintUsage(out io.Writer) {
	fmt.Fprintln(out, "usage: cartctl [-config file] <command> [arguments]")
	fmt.Fprintln(out)
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %-8s %s\n", name, commands[name].summary)
	}
}

// mutate pulls first so the write starts from the merged server cart, applies
// fn locally, then pushes. Network failures only warn: the local write stands.
func mutate(ctx context.Context, c *Client, out io.Writer, fn func() (cart.State, error)) error {
	if err := c.Manager.PullFromServer(ctx); err != nil {
		c.Logger.Debug("Pull before write failed", zap.Error(err))
	}
	state, err := fn()
	if err != nil {
		return err
	}
	if err := c.Manager.PushToServer(ctx, false); err != nil {
		fmt.Fprintln(out, DefaultStyles().Muted.Render("warning: saved locally, server sync pending"))
		c.Logger.Debug("Push after write failed", zap.Error(err))
	}
	fmt.Fprintln(out, RenderCart(state, DefaultStyles()))
	return nil
}

func runAdd(ctx context.Context, c *Client, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	name := fs.String("name", "", "display name")
	variant := fs.String("variant", "", "variant label")
	price := fs.Float64("price", 0, "unit price in VND")
	original := fs.Float64("original-price", 0, "list price in VND")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if fs.NArg() < 1 || fs.NArg() > 2 {
		return ErrUsage
	}
	qty := 1
	if fs.NArg() == 2 {
		n, err := strconv.Atoi(fs.Arg(1))
		if err != nil {
			return fmt.Errorf("%w: invalid quantity %q", ErrUsage, fs.Arg(1))
		}
		qty = n
	}

	line, err := cart.NewLine(fs.Arg(0), *variant, *name, *price, qty)
	if err != nil {
		return err
	}
	if *original > 0 {
		line = line.WithOriginalPrice(*original)
	}
	return mutate(ctx, c, out, func() (cart.State, error) {
		return c.Local.Add(ctx, line, cartclient.SourceLocal)
	})
}

func runRemove(ctx context.Context, c *Client, out io.Writer, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	return mutate(ctx, c, out, func() (cart.State, error) {
		return c.Local.Remove(ctx, args[0], cartclient.SourceLocal)
	})
}

func runSet(ctx context.Context, c *Client, out io.Writer, args []string) error {
	if len(args) != 2 {
		return ErrUsage
	}
	qty, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("%w: invalid quantity %q", ErrUsage, args[1])
	}
	return mutate(ctx, c, out, func() (cart.State, error) {
		return c.Local.SetQuantity(ctx, args[0], qty, cartclient.SourceLocal)
	})
}

func runList(ctx context.Context, c *Client, out io.Writer, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	fmt.Fprintln(out, RenderCart(c.Local.Read(ctx), DefaultStyles()))
	return nil
}

func runSync(ctx context.Context, c *Client, out io.Writer, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	if err := c.Manager.ForceSync(ctx); err != nil {
		return err
	}
	fmt.Fprintln(out, RenderCart(c.Local.Read(ctx), DefaultStyles()))
	return nil
}

func runClear(ctx context.Context, c *Client, out io.Writer, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	if err := c.Manager.ClearCart(ctx); err != nil {
		if errors.Is(err, cartclient.ErrRemoteClearFailed) {
			fmt.Fprintln(out, DefaultStyles().Muted.Render("warning: cleared locally, server record not deleted"))
			return nil
		}
		return err
	}
	fmt.Fprintln(out, "Cart cleared")
	return nil
}

func runSession(ctx context.Context, c *Client, out io.Writer, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	id, err := c.Sessions.GetOrCreate(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, id.String())
	return nil
}
