package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"gainstaker/config"
	"gainstaker/internal/quote"
	"gainstaker/internal/route"
	"gainstaker/internal/settle"
	"gainstaker/internal/symbols"
	"gainstaker/internal/tax"
	"gainstaker/logger"
	"gainstaker/models"
	"gainstaker/reader/binance"
	"gainstaker/writer"
)

var (
	errUsage         = errors.New("usage")
	errNoCredentials = errors.New("BINANCE_API_KEY and BINANCE_API_SECRET are required")
	valueConcurrency = 4
)

// app wires the exchange client and the core for one command.
type app struct {
	cfg    *config.Config
	out    io.Writer
	log    *logger.Log
	client *binance.Client

	universe *symbols.Universe
	journal  *writer.Journal
}

func newApp(cfg *config.Config, out io.Writer) *app {
	return &app{
		cfg:    cfg,
		out:    out,
		log:    logger.GetLogger(),
		client: binance.NewClient(cfg),
	}
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch strings.ToLower(cmd) {
	case "pairings":
		return a.pairings(ctx, args)
	case "symbols":
		return a.symbols(ctx, args)
	case "balances":
		return a.balances(ctx, args)
	case "quote":
		return a.quote(ctx, args)
	case "value":
		return a.value(ctx, args)
	case "route":
		return a.route(ctx, args)
	case "market":
		return a.market(ctx, args)
	case "tax":
		return a.tax(ctx, args)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

// close flushes the journal, if one was opened.
func (a *app) close(ctx context.Context) error {
	if a.journal == nil {
		return nil
	}
	_, err := a.journal.Flush(ctx)
	return err
}

func (a *app) loadUniverse(ctx context.Context) (*symbols.Universe, error) {
	if a.universe != nil {
		return a.universe, nil
	}
	u, err := symbols.Load(ctx, a.client,
		symbols.WithExcluded(a.cfg.Symbols.ExcludedPairs...),
		symbols.WithPreferredBases(models.Asset(a.cfg.Route.BridgeAsset), models.Asset(a.cfg.Route.ReferenceAsset)),
	)
	if err != nil {
		return nil, err
	}
	a.universe = u
	return u, nil
}

type core struct {
	universe *symbols.Universe
	resolver *symbols.Resolver
	planner  *route.Planner
	quoter   *quote.Quoter
}

func (a *app) core(ctx context.Context) (*core, error) {
	u, err := a.loadUniverse(ctx)
	if err != nil {
		return nil, err
	}
	resolver := symbols.NewResolver(u)
	planner := route.NewPlanner(resolver,
		models.Asset(a.cfg.Route.ReferenceAsset), models.Asset(a.cfg.Route.BridgeAsset))
	return &core{
		universe: u,
		resolver: resolver,
		planner:  planner,
		quoter:   quote.NewQuoter(a.client, u, planner, a.cfg.Exchange.DepthLimit),
	}, nil
}

func (a *app) settler(ctx context.Context, u *symbols.Universe) (*settle.Settler, error) {
	if !a.cfg.Credentials.Complete() {
		return nil, errNoCredentials
	}
	opts := []settle.Option{settle.WithReconcileTimeout(a.cfg.Settle.ReconcileTimeout)}
	if a.journal == nil {
		j, err := writer.NewJournal(ctx, a.cfg)
		if err != nil {
			return nil, err
		}
		a.journal = j
	}
	if a.journal != nil {
		opts = append(opts, settle.WithRecorder(a.journal))
	}
	return settle.NewSettler(a.client, a.client, u, opts...), nil
}

func (a *app) pairings(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("pairings", flag.ContinueOnError)
	asset := fs.String("asset", "", "only pairs involving this asset")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	u, err := a.loadUniverse(ctx)
	if err != nil {
		return err
	}
	list := u.Symbols()
	if *asset != "" {
		res := symbols.NewResolver(u)
		as, err := res.ValidateAsset(*asset)
		if err != nil {
			return err
		}
		list = u.PairsWith(as)
	}
	for _, s := range list {
		fmt.Fprintln(a.out, s)
	}
	return nil
}

func (a *app) symbols(ctx context.Context, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("%w: symbols takes no arguments", errUsage)
	}
	u, err := a.loadUniverse(ctx)
	if err != nil {
		return err
	}
	for _, as := range u.Assets() {
		fmt.Fprintln(a.out, as)
	}
	return nil
}

func (a *app) balances(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("balances", flag.ContinueOnError)
	withValue := fs.Bool("value", false, "add each balance's value in the reference asset")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if !a.cfg.Credentials.Complete() {
		return errNoCredentials
	}
	all, err := a.client.Balances(ctx)
	if err != nil {
		return err
	}
	var held []models.Balance
	for _, b := range all {
		if b.Free.IsPositive() || b.Locked.IsPositive() {
			held = append(held, b)
		}
	}

	values := make([]string, len(held))
	if *withValue {
		c, err := a.core(ctx)
		if err != nil {
			return err
		}
		a.valueAll(ctx, c.quoter, held, values)
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	header := "ASSET\tFREE\tLOCKED"
	if *withValue {
		header += "\t" + a.cfg.Route.ReferenceAsset
	}
	fmt.Fprintln(tw, header)
	for i, b := range held {
		line := fmt.Sprintf("%s\t%s\t%s", b.Asset, b.Free, b.Locked)
		if *withValue {
			line += "\t" + values[i]
		}
		fmt.Fprintln(tw, line)
	}
	return tw.Flush()
}

// valueAll quotes every free balance concurrently. A holding that cannot be
// valued is shown as n/a rather than failing the listing.
func (a *app) valueAll(ctx context.Context, q *quote.Quoter, held []models.Balance, values []string) {
	var g errgroup.Group
	g.SetLimit(valueConcurrency)
	for i, b := range held {
		i, b := i, b
		g.Go(func() error {
			v := "n/a"
			if b.Free.IsPositive() {
				res, _, err := q.Value(ctx, b.Asset, b.Free)
				if err == nil {
					v = res.Amount.String()
				} else {
					a.log.WithComponent("cli").WithError(err).WithFields(logger.Fields{"asset": b.Asset.String()}).Debug("balance not valued")
				}
			}
			values[i] = v
			return nil
		})
	}
	_ = g.Wait()
}

func (a *app) quote(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("quote", flag.ContinueOnError)
	pairStr := fs.String("pair", "", "listed pair, e.g. ETHUSDC")
	sideStr := fs.String("side", "", "buy or sell")
	amountStr := fs.String("amount", "", "Base to spend for buy, Quote to dispose of for sell")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	side, err := models.ParseSide(*sideStr)
	if err != nil {
		return err
	}
	amount, err := parseAmount("amount", *amountStr)
	if err != nil {
		return err
	}
	c, err := a.core(ctx)
	if err != nil {
		return err
	}
	pair, err := c.resolver.ResolvePair(*pairStr)
	if err != nil {
		return err
	}
	res, err := c.quoter.Quote(ctx, models.ConversionRequest{Pair: pair, Side: side, Amount: amount})
	if err != nil {
		return err
	}
	return a.print(struct {
		Pair   models.Pair             `json:"pair"`
		Side   models.Side             `json:"side"`
		Amount decimal.Decimal         `json:"amount"`
		Result models.ConversionResult `json:"result"`
	}{pair, side, amount, res})
}

func (a *app) value(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("value", flag.ContinueOnError)
	asset := fs.String("asset", "", "asset held")
	qtyStr := fs.String("qty", "", "quantity held")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	qty, err := parseAmount("qty", *qtyStr)
	if err != nil {
		return err
	}
	c, err := a.core(ctx)
	if err != nil {
		return err
	}
	res, path, err := c.quoter.Value(ctx, models.NormalizeAsset(*asset), qty)
	if err != nil {
		return err
	}
	return a.print(struct {
		Path   models.RoutePath        `json:"path"`
		Result models.ConversionResult `json:"result"`
	}{path, res})
}

func (a *app) route(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("route", flag.ContinueOnError)
	asset := fs.String("asset", "", "asset to route to the reference asset")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	c, err := a.core(ctx)
	if err != nil {
		return err
	}
	path, err := c.planner.PathToReference(models.NormalizeAsset(*asset))
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, path.String())
	return nil
}

func (a *app) market(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("market", flag.ContinueOnError)
	pairStr := fs.String("pair", "", "listed pair, e.g. ETHUSDC")
	sideStr := fs.String("side", "", "buy or sell")
	qtyStr := fs.String("qty", "", "quantity of the pair's first symbol")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	side, err := models.ParseSide(*sideStr)
	if err != nil {
		return err
	}
	qty, err := parseAmount("qty", *qtyStr)
	if err != nil {
		return err
	}
	c, err := a.core(ctx)
	if err != nil {
		return err
	}
	pair, err := c.resolver.ResolvePair(*pairStr)
	if err != nil {
		return err
	}
	s, err := a.settler(ctx, c.universe)
	if err != nil {
		return err
	}
	res, err := s.ExecuteConversion(ctx, pair, side, qty)
	if err != nil {
		return err
	}
	return a.print(res)
}

func (a *app) tax(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("tax", flag.ContinueOnError)
	proceedsStr := fs.String("proceeds", "", "sale proceeds in the reference asset")
	basisStr := fs.String("basis", "0", "cost basis in the reference asset")
	termStr := fs.String("term", "short", "short or long")
	asset := fs.String("asset", "", "asset to liquidate the liability from")
	execute := fs.Bool("execute", false, "place the liquidation orders")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	proceeds, err := parseAmount("proceeds", *proceedsStr)
	if err != nil {
		return err
	}
	basis, err := decimal.NewFromString(*basisStr)
	if err != nil {
		return fmt.Errorf("%w: basis %q", models.ErrInvalidQuantity, *basisStr)
	}
	term, err := models.ParseTerm(*termStr)
	if err != nil {
		return err
	}

	engine := tax.NewEngine(a.cfg.Tax, nil, nil, nil, nil)
	liability, err := engine.ComputeLiability(proceeds, basis, term)
	if err != nil {
		return err
	}
	if *asset == "" {
		return a.print(liability)
	}

	c, err := a.core(ctx)
	if err != nil {
		return err
	}
	path, err := c.planner.PathToReference(models.NormalizeAsset(*asset))
	if err != nil {
		return err
	}
	if !*execute {
		return a.print(struct {
			Liability models.TaxLiability `json:"liability"`
			Path      models.RoutePath    `json:"path"`
		}{liability, path})
	}

	s, err := a.settler(ctx, c.universe)
	if err != nil {
		return err
	}
	engine = tax.NewEngine(a.cfg.Tax, c.planner, c.quoter, s, c.universe)
	res, err := engine.Liquidate(ctx, liability, models.NormalizeAsset(*asset))
	if err != nil {
		return a.reportPartial(res, err)
	}
	return a.print(struct {
		Liability models.TaxLiability `json:"liability"`
		Path      models.RoutePath    `json:"path"`
		Trade     models.TradeResult  `json:"trade"`
	}{liability, path, res})
}

// reportPartial prints a trade that settled before a later hop failed, then
// returns err.
func (a *app) reportPartial(res models.TradeResult, err error) error {
	if res.ID == "" {
		return err
	}
	a.log.WithComponent("cli").WithError(err).WithFields(logger.Fields{
		"trade_id": res.ID,
		"pair":     res.Pair.Symbol(),
		"acquired": res.Acquired.String(),
		"asset":    res.AcquiredAsset.String(),
	}).Warn("liquidation stopped after a partial trade")
	if perr := a.print(struct {
		Partial models.TradeResult `json:"partial"`
	}{res}); perr != nil {
		return errors.Join(err, perr)
	}
	return err
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseAmount(name, s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, fmt.Errorf("%w: -%s is required", errUsage, name)
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s %q", models.ErrInvalidQuantity, name, s)
	}
	return d, nil
}
