package exec

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yolodolo42/txagent/internal/chain"
	"github.com/yolodolo42/txagent/internal/journal"
	"github.com/yolodolo42/txagent/internal/tx"
	"github.com/yolodolo42/txagent/internal/wallet"
)

// Recorder receives one journal entry per stage boundary of an invocation.
// *journal.Store satisfies it.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) error
}

// TransferRequest moves value to a recipient. An empty Token means the native asset.
type TransferRequest struct {
	Chain  string
	Token  string
	To     string
	Amount string
}

// SwapRequest buys Token with Amount of the native asset.
type SwapRequest struct {
	Chain  string
	Token  string
	Amount string
}

// Result describes a submitted transaction.
type Result struct {
	InvocationID string
	Op           OpKind
	Chain        string
	From         common.Address
	TxHash       string
}

// Executor runs the three operations through one template:
// validate, resolve chain, build signer, submit on the bridge, map the result.
type Executor struct {
	registry  *chain.Registry
	keys      wallet.KeySource
	connector Connector
	bridge    *Bridge
	workers   int
	policy    tx.Policy
	recorder  Recorder
	now       func() time.Time
	newID     func() string
	log       *logrus.Logger
}

// Option configures an Executor.
type Option func(*Executor)

func WithConnector(c Connector) Option { return func(e *Executor) { e.connector = c } }

func WithBridge(b *Bridge) Option { return func(e *Executor) { e.bridge = b } }

// WithWorkers sizes the default bridge. Ignored when WithBridge is given.
func WithWorkers(n int) Option { return func(e *Executor) { e.workers = n } }

func WithPolicy(p tx.Policy) Option { return func(e *Executor) { e.policy = p } }

func WithJournal(r Recorder) Option { return func(e *Executor) { e.recorder = r } }

func WithClock(now func() time.Time) Option { return func(e *Executor) { e.now = now } }

func WithLogger(l *logrus.Logger) Option { return func(e *Executor) { e.log = l } }

func withIDs(f func() string) Option { return func(e *Executor) { e.newID = f } }

// New builds an executor over a loaded registry. keys is consulted once per invocation.
func New(registry *chain.Registry, keys wallet.KeySource, opts ...Option) *Executor {
	e := &Executor{
		registry:  registry,
		keys:      keys,
		connector: EthConnector{},
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.bridge == nil {
		e.bridge = NewBridge(e.workers)
	}
	if e.log == nil {
		e.log = logrus.New()
	}
	return e
}

// Close waits for in-flight submissions and rejects new ones.
func (e *Executor) Close() {
	e.bridge.Close()
}

// Registry returns the chain registry the executor resolves against.
func (e *Executor) Registry() *chain.Registry {
	return e.registry
}

// Transfer dispatches to SendNative or SendToken depending on req.Token.
func (e *Executor) Transfer(ctx context.Context, req TransferRequest) (Result, error) {
	if strings.TrimSpace(req.Token) == "" {
		return e.SendNative(ctx, req.Chain, req.To, req.Amount)
	}
	return e.SendToken(ctx, req.Chain, req.Token, req.To, req.Amount)
}

// SendNative transfers amount of the chain's native asset to to.
func (e *Executor) SendNative(ctx context.Context, chainName, to, amount string) (Result, error) {
	return e.run(ctx, invocation{
		kind:      OpNativeTransfer,
		chain:     chainName,
		recipient: to,
		amount:    amount,
		prepare: func(info chain.ChainInfo, to common.Address, a tx.Amount) (Operation, error) {
			return newNativeTransfer(info, to, a)
		},
	})
}

// SendToken transfers amount of token (address or listed symbol) to to.
func (e *Executor) SendToken(ctx context.Context, chainName, token, to, amount string) (Result, error) {
	return e.run(ctx, invocation{
		kind:      OpTokenTransfer,
		chain:     chainName,
		token:     token,
		recipient: to,
		amount:    amount,
		prepare: func(info chain.ChainInfo, to common.Address, a tx.Amount) (Operation, error) {
			return newTokenTransfer(info, token, to, a)
		},
	})
}

// Swap exchanges native asset for req.Token through the chain's router.
// Output is paid to the sender.
func (e *Executor) Swap(ctx context.Context, req SwapRequest) (Result, error) {
	return e.run(ctx, invocation{
		kind:   OpSwap,
		chain:  req.Chain,
		token:  req.Token,
		amount: req.Amount,
		prepare: func(info chain.ChainInfo, _ common.Address, a tx.Amount) (Operation, error) {
			return newSwap(info, req.Token, a, e.now)
		},
	})
}

type invocation struct {
	kind      OpKind
	chain     string
	token     string
	recipient string
	amount    string
	prepare   func(info chain.ChainInfo, to common.Address, a tx.Amount) (Operation, error)
}

func (e *Executor) run(ctx context.Context, inv invocation) (Result, error) {
	id := e.newID()
	res := Result{InvocationID: id, Op: inv.kind, Chain: inv.chain}
	entry := journal.Entry{
		ID:        id,
		Op:        string(inv.kind),
		Chain:     inv.chain,
		Recipient: inv.recipient,
		Token:     inv.token,
		Amount:    inv.amount,
		CreatedAt: e.now(),
	}
	log := e.log.WithFields(logrus.Fields{
		"invocation": id,
		"op":         inv.kind,
		"chain":      inv.chain,
	})

	contacted := false
	normalize := func(err error) *tx.Error {
		terr := tx.Normalize(err)
		if contacted {
			terr = terr.AfterContact()
		}
		return terr
	}
	fail := func(err error) (Result, error) {
		terr := normalize(err)
		log.WithFields(logrus.Fields{"kind": terr.Kind(), "code": terr.Code()}).Warn(terr.Message())
		e.record(log, e.finalEntry(entry, "", terr))
		return res, terr
	}

	amount, err := tx.ParseAmount(inv.amount)
	if err != nil {
		return fail(err)
	}
	if err := tx.Check(amount, inv.kind.Ceiling()); err != nil {
		return fail(err)
	}

	var to common.Address
	if inv.kind != OpSwap {
		to, err = tx.ParseAddress("to_address", inv.recipient)
		if err != nil {
			return fail(err)
		}
		if err := e.policy.CheckRecipient(to); err != nil {
			return fail(err)
		}
	}

	info, ok := e.registry.Lookup(inv.chain)
	if !ok {
		return fail(tx.New(tx.CodeUnknownChain, "chain %q is not configured", inv.chain))
	}
	res.Chain = info.Name
	entry.Chain = info.Name

	op, err := inv.prepare(info, to, amount)
	if err != nil {
		return fail(err)
	}
	log.Debug("request validated")

	if e.keys == nil {
		return fail(tx.New(tx.CodeMissingKey, "no signing key source configured"))
	}
	key, err := e.keys.PrivateKey(ctx)
	if err != nil {
		return fail(keyError(err))
	}

	sc, err := e.connector.Connect(ctx, info, key)
	if err != nil {
		return fail(err)
	}
	contacted = true
	res.From = sc.From
	log = log.WithField("from", sc.From.Hex())
	log.Debug("signer ready")

	entry.Status = journal.StatusPending
	e.record(log, entry)

	work := func(workCtx context.Context) (common.Hash, error) {
		defer sc.Close()
		return op.Execute(workCtx, sc)
	}
	late := func(hash common.Hash, err error) {
		var final journal.Entry
		if err != nil {
			final = e.finalEntry(entry, "", normalize(err))
		} else {
			final = e.finalEntry(entry, hash.Hex(), nil)
		}
		log.WithField("status", final.Status).Info("abandoned submission finished")
		e.record(log, final)
	}

	hash, err := e.bridge.Submit(ctx, work, late)
	if notStarted(err) {
		sc.Close()
	}
	if err != nil && abandoned(err) {
		// the late callback owns the final journal row
		terr := normalize(err)
		log.WithFields(logrus.Fields{"kind": terr.Kind(), "code": terr.Code()}).Warn(terr.Message())
		return res, terr
	}

	out, err := tx.MapResult(hash, err)
	if err != nil {
		return fail(err)
	}
	res.TxHash = out
	log.WithField("tx_hash", out).Info("transaction submitted")
	e.record(log, e.finalEntry(entry, out, nil))
	return res, nil
}

// notStarted reports whether the bridge refused the work before running it.
func notStarted(err error) bool {
	switch tx.CodeOf(err) {
	case tx.CodeBridgeClosed, tx.CodeBridgeRejected:
		return true
	}
	return false
}

func keyError(err error) *tx.Error {
	switch {
	case errors.Is(err, wallet.ErrWrongPassword):
		return tx.Wrap(tx.CodeKeyLocked, err, "keystore could not be unlocked")
	case errors.Is(err, wallet.ErrInvalidKey):
		return tx.Wrap(tx.CodeMalformedKey, err, "signing key is malformed")
	}
	return tx.Wrap(tx.CodeMissingKey, err, "signing key unavailable")
}

// abandoned reports whether the caller stopped waiting while work was in flight.
func abandoned(err error) bool {
	if tx.CodeOf(err) != tx.CodeBridgeAborted {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (e *Executor) finalEntry(base journal.Entry, hash string, err *tx.Error) journal.Entry {
	out := base
	if err != nil {
		out.Status = journal.StatusFailed
		out.ErrorKind = string(err.Kind())
		out.ErrorCode = string(err.Code())
		out.Error = err.Error()
		return out
	}
	out.Status = journal.StatusSubmitted
	out.TxHash = hash
	return out
}

func (e *Executor) record(log *logrus.Entry, entry journal.Entry) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.Record(context.Background(), entry); err != nil {
		log.WithError(err).Warn("journal write failed")
	}
}
