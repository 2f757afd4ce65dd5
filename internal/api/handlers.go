package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/chainstream/streams/internal/apikey"
	"github.com/chainstream/streams/internal/query"
	"github.com/chainstream/streams/internal/records"
	"github.com/chainstream/streams/internal/subject"
)

// handleList builds the GET handler for one route: scope check,
// pagination validation, path/subject filter injection, repository
// fetch, JSON envelope (spec §4.J steps 2-5).
func (a *API) handleList(rt route) http.HandlerFunc {
	probe := rt.ScopePrefix + ".x"

	return func(w http.ResponseWriter, r *http.Request) {
		role, _ := roleFromContext(r.Context())
		if err := a.apikeys.CheckScope(role, probe); err != nil {
			a.metrics.IncAuthRejected()
			writeError(w, errorStatus(err), err.Error())
			return
		}

		where, err := a.whereFor(rt, r)
		if err != nil {
			a.metrics.IncValidationError()
			writeError(w, errorStatus(err), err.Error())
			return
		}

		p, err := parsePagination(r.URL.Query())
		if err != nil {
			a.metrics.IncValidationError()
			writeError(w, errorStatus(err), err.Error())
			return
		}
		if err := p.Validate(); err != nil {
			a.metrics.IncValidationError()
			writeError(w, errorStatus(err), err.Error())
			return
		}

		packets, err := a.repos.FindManyPackets(r.Context(), rt.Entity, p, where, nil)
		if err != nil {
			a.metrics.IncServerError()
			key, _ := keyFromContext(r.Context())
			a.logger.Error().Err(err).Str("entity", rt.Entity).Str("user", key.UserName).Msg("api: query failed")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		a.metrics.IncRequest(rt.Entity)
		writeData(w, packets)
	}
}

// whereFor combines a route's subject-schema filter, path-variable
// filter, and any custom resolver into the single SQL WHERE fragment
// FindManyPackets accepts.
func (a *API) whereFor(rt route, r *http.Request) (string, error) {
	if rt.Custom != nil {
		return rt.Custom(mux.Vars(r))
	}

	var clauses []string

	if rt.SchemaID != "" {
		where, err := a.schemaWhere(rt.SchemaID, r)
		if err != nil {
			return "", err
		}
		if where != "" {
			clauses = append(clauses, where)
		}
	}

	if len(rt.PathVars) > 0 {
		vars := mux.Vars(r)
		for _, pv := range rt.PathVars {
			v, ok := vars[pv.Var]
			if !ok || v == "" {
				continue
			}
			clauses = append(clauses, fmt.Sprintf("%s = '%s'", pv.Column, escapeLiteral(v)))
		}
	}

	return strings.Join(clauses, " AND "), nil
}

// schemaWhere binds a route's subject schema against whichever of its
// declared parameters appear as query-string filters, then projects
// them to SQL via subject.Subject.ToSQLWhere (spec §4.D + §4.C.1).
func (a *API) schemaWhere(schemaID string, r *http.Request) (string, error) {
	schema, ok := a.reg.ByID(schemaID)
	if !ok {
		return "", fmt.Errorf("api: unknown subject schema %q", schemaID)
	}

	q := r.URL.Query()
	values := make(map[string]string, len(schema.Params))
	for _, p := range schema.Params {
		if v := q.Get(p.Name); v != "" {
			values[p.Name] = v
		}
	}

	subj := subject.New(schema, values)
	where, _ := subj.ToSQLWhere()
	return where, nil
}

func escapeLiteral(v string) string {
	return strings.ReplaceAll(v, "'", "''")
}

// errorStatus maps spec §7's taxonomy to an HTTP status code for
// errors that escape a handler unclassified (the common path writes a
// status explicitly; this backstops anything else that reaches here).
func errorStatus(err error) int {
	switch {
	case errors.Is(err, query.ErrMixedPaginationStrategy),
		errors.Is(err, query.ErrConflictingCursors),
		errors.Is(err, query.ErrConflictingFirstLast),
		errors.Is(err, query.ErrMissingFirstWithAfter),
		errors.Is(err, query.ErrMissingLastWithBefore),
		errors.Is(err, query.ErrNegativeOffset),
		errors.Is(err, query.ErrOrderByWithCursor),
		errors.Is(err, query.ErrInvalidFirst),
		errors.Is(err, query.ErrInvalidLast),
		errors.Is(err, query.ErrInvalidLimit),
		errors.Is(err, errInvalidFormat):
		return http.StatusBadRequest
	case errors.Is(err, apikey.ErrNotFound), errors.Is(err, apikey.ErrBadStatus):
		return http.StatusUnauthorized
	case errors.Is(err, apikey.ErrScopePermission):
		return http.StatusForbidden
	case errors.Is(err, apikey.ErrRateLimitExceeded), errors.Is(err, apikey.ErrSubscriptionLimit):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

type envelope struct {
	Data []json.RawMessage `json:"data"`
}

type errorBody struct {
	Error string `json:"error"`
}

// writeData serializes a packet slice to spec §6's "{data: [...]}"
// collection envelope, each element being the packet's already-encoded
// JSON value.
func writeData(w http.ResponseWriter, packets []records.Packet) {
	data := make([]json.RawMessage, len(packets))
	for i, pkt := range packets {
		data[i] = json.RawMessage(pkt.Value)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(envelope{Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: msg})
}
