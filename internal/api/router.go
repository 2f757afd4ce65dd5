// Package api implements the REST query surface of spec §4.J: one GET
// endpoint per entity and per subject variant, each running API-key
// authentication, §4.D query validation, path-filter injection, and a
// uniform {data: [...]} envelope. Grounded on
// _examples/orbas1-Synnergy/synnergy-network/cmd/explorer/server.go's
// mux.Router + middleware + writeJSON shape.
package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/chainstream/streams/internal/apikey"
	"github.com/chainstream/streams/internal/repository"
	"github.com/chainstream/streams/internal/subject"
)

// pathFilter binds one mux path variable to a raw SQL column, for
// routes whose filter isn't expressed through the subject schema table
// (e.g. "/transactions/{tx_id}/receipts").
type pathFilter struct {
	Var    string
	Column string
}

// route is one entry of spec §4.J's endpoint table.
type route struct {
	Path        string
	Entity      string // repository/table name
	SchemaID    string // subject.Schema ID for query-parameter filters, "" if none
	ScopePrefix string // dot-joined prefix checked against the caller's role scopes
	PathVars    []pathFilter
	Custom      func(vars map[string]string) (string, error)
}

// routes enumerates spec §4.J's endpoint list: one per entity plus one
// per subject variant declared in subject.DefaultSchemas.
func routes() []route {
	return []route{
		{Path: "/blocks", Entity: "blocks", SchemaID: "blocks", ScopePrefix: "blocks"},
		{
			Path:        "/blocks/{height}",
			Entity:      "blocks",
			SchemaID:    "blocks",
			ScopePrefix: "blocks",
			PathVars:    []pathFilter{{Var: "height", Column: "block_height"}},
		},
		{Path: "/transactions", Entity: "transactions", SchemaID: "transactions", ScopePrefix: "transactions"},
		{
			Path:        "/transactions/{tx_id}/receipts",
			Entity:      "receipts",
			ScopePrefix: "receipts",
			PathVars:    []pathFilter{{Var: "tx_id", Column: "tx_id"}},
		},
		{
			Path:        "/accounts/{address}/transactions",
			Entity:      "transactions",
			ScopePrefix: "transactions",
			Custom:      accountTransactionsWhere,
		},

		{Path: "/inputs", Entity: "inputs", ScopePrefix: "inputs"},
		{Path: "/inputs/coin", Entity: "inputs", SchemaID: "inputs_coin", ScopePrefix: "inputs.coin"},
		{Path: "/inputs/contract", Entity: "inputs", SchemaID: "inputs_contract", ScopePrefix: "inputs.contract"},
		{Path: "/inputs/message", Entity: "inputs", SchemaID: "inputs_message", ScopePrefix: "inputs.message"},

		{Path: "/outputs", Entity: "outputs", ScopePrefix: "outputs"},
		{Path: "/outputs/coin", Entity: "outputs", SchemaID: "outputs_coin", ScopePrefix: "outputs.coin"},
		{Path: "/outputs/contract", Entity: "outputs", SchemaID: "outputs_contract", ScopePrefix: "outputs.contract"},
		{Path: "/outputs/change", Entity: "outputs", SchemaID: "outputs_change", ScopePrefix: "outputs.change"},
		{Path: "/outputs/variable", Entity: "outputs", SchemaID: "outputs_variable", ScopePrefix: "outputs.variable"},
		{Path: "/outputs/contract_created", Entity: "outputs", SchemaID: "outputs_contract_created", ScopePrefix: "outputs.contract_created"},

		{Path: "/receipts", Entity: "receipts", ScopePrefix: "receipts"},
		{Path: "/receipts/call", Entity: "receipts", SchemaID: "receipts_call", ScopePrefix: "receipts.call"},
		{Path: "/receipts/return", Entity: "receipts", SchemaID: "receipts_return", ScopePrefix: "receipts.return"},
		{Path: "/receipts/return_data", Entity: "receipts", SchemaID: "receipts_return_data", ScopePrefix: "receipts.return_data"},
		{Path: "/receipts/panic", Entity: "receipts", SchemaID: "receipts_panic", ScopePrefix: "receipts.panic"},
		{Path: "/receipts/revert", Entity: "receipts", SchemaID: "receipts_revert", ScopePrefix: "receipts.revert"},
		{Path: "/receipts/log", Entity: "receipts", SchemaID: "receipts_log", ScopePrefix: "receipts.log"},
		{Path: "/receipts/log_data", Entity: "receipts", SchemaID: "receipts_log_data", ScopePrefix: "receipts.log_data"},
		{Path: "/receipts/transfer", Entity: "receipts", SchemaID: "receipts_transfer", ScopePrefix: "receipts.transfer"},
		{Path: "/receipts/transfer_out", Entity: "receipts", SchemaID: "receipts_transfer_out", ScopePrefix: "receipts.transfer_out"},
		{Path: "/receipts/script_result", Entity: "receipts", SchemaID: "receipts_script_result", ScopePrefix: "receipts.script_result"},
		{Path: "/receipts/message_out", Entity: "receipts", SchemaID: "receipts_message_out", ScopePrefix: "receipts.message_out"},
		{Path: "/receipts/mint", Entity: "receipts", SchemaID: "receipts_mint", ScopePrefix: "receipts.mint"},
		{Path: "/receipts/burn", Entity: "receipts", SchemaID: "receipts_burn", ScopePrefix: "receipts.burn"},

		{Path: "/utxos", Entity: "utxos", SchemaID: "utxos", ScopePrefix: "utxos"},
		{Path: "/predicates", Entity: "predicates", SchemaID: "predicates", ScopePrefix: "predicates"},
		{Path: "/messages", Entity: "messages", SchemaID: "messages", ScopePrefix: "messages"},
	}
}

// API serves spec §4.J's REST query surface.
type API struct {
	router  *mux.Router
	repos   *repository.Repositories
	apikeys *apikey.Manager
	reg     *subject.Registry
	logger  zerolog.Logger
	metrics Metrics
}

// Option customizes an API at construction time, mirroring
// internal/executor.Option and internal/wsgateway.Option.
type Option func(*API)

// WithMetrics wires a Metrics sink.
func WithMetrics(m Metrics) Option { return func(a *API) { a.metrics = m } }

// New builds the REST surface under base prefix "/api/v1" (spec §6).
func New(repos *repository.Repositories, apikeys *apikey.Manager, reg *subject.Registry, logger zerolog.Logger, opts ...Option) *API {
	a := &API{
		repos:   repos,
		apikeys: apikeys,
		reg:     reg,
		logger:  logger,
		metrics: nopMetrics{},
	}
	for _, opt := range opts {
		opt(a)
	}

	root := mux.NewRouter()
	root.Use(loggingMiddleware(logger))
	sub := root.PathPrefix("/api/v1").Subrouter()
	sub.Use(a.authMiddleware)

	for _, rt := range routes() {
		sub.HandleFunc(rt.Path, a.handleList(rt)).Methods(http.MethodGet)
	}

	a.router = root
	return a
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// accountTransactionsWhere resolves "/accounts/{address}/transactions"
// (spec §4.J's illustrative path-filtered endpoint): transactions have
// no address column of their own, so membership is resolved through the
// inputs/outputs rows that reference the address.
func accountTransactionsWhere(vars map[string]string) (string, error) {
	address := vars["address"]
	if address == "" {
		return "", fmt.Errorf("%w: missing 'address' path parameter", errInvalidFormat)
	}
	esc := escapeLiteral(address)
	return fmt.Sprintf(
		"tx_id IN (SELECT tx_id FROM inputs WHERE owner = '%s' OR sender = '%s' OR recipient = '%s' "+
			"UNION SELECT tx_id FROM outputs WHERE to_address = '%s')",
		esc, esc, esc, esc,
	), nil
}
