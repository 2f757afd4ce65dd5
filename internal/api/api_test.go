package api

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainstream/streams/internal/query"
	"github.com/chainstream/streams/internal/subject"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testRegistry(t *testing.T) *subject.Registry {
	t.Helper()
	reg, err := subject.NewDefaultRegistry()
	require.NoError(t, err)
	return reg
}

func TestRoutesResolveAgainstDefaultRegistry(t *testing.T) {
	reg := testRegistry(t)
	for _, rt := range routes() {
		if rt.SchemaID == "" {
			continue
		}
		_, ok := reg.ByID(rt.SchemaID)
		assert.True(t, ok, "route %s references unknown schema %q", rt.Path, rt.SchemaID)
	}
}

func TestRoutesHaveUniquePaths(t *testing.T) {
	seen := make(map[string]bool)
	for _, rt := range routes() {
		assert.False(t, seen[rt.Path], "duplicate route path %s", rt.Path)
		seen[rt.Path] = true
	}
}

func TestSchemaWhereBindsOnlyPresentQueryParams(t *testing.T) {
	a := &API{reg: testRegistry(t)}
	r := httptest.NewRequest(http.MethodGet, "/inputs/coin?owner=0xabc", nil)

	where, err := a.schemaWhere("inputs_coin", r)
	require.NoError(t, err)
	assert.Contains(t, where, "owner = '0xabc'")
	assert.Contains(t, where, "input_type = 'coin'")
	assert.NotContains(t, where, "asset_id")
}

func TestSchemaWhereUnknownSchemaErrors(t *testing.T) {
	a := &API{reg: testRegistry(t)}
	r := httptest.NewRequest(http.MethodGet, "/inputs/coin", nil)
	_, err := a.schemaWhere("not_a_schema", r)
	assert.Error(t, err)
}

func TestWhereForCombinesPathVarsAndSchema(t *testing.T) {
	a := &API{reg: testRegistry(t)}
	rt := route{SchemaID: "blocks", PathVars: []pathFilter{{Var: "height", Column: "block_height"}}}
	r := httptest.NewRequest(http.MethodGet, "/blocks/42?producer=0x01", nil)
	r = mux.SetURLVars(r, map[string]string{"height": "42"})

	where, err := a.whereFor(rt, r)
	require.NoError(t, err)
	assert.Contains(t, where, "producer_address = '0x01'")
	assert.Contains(t, where, "block_height = '42'")
}

func TestAccountTransactionsWhereRequiresAddress(t *testing.T) {
	_, err := accountTransactionsWhere(map[string]string{})
	assert.Error(t, err)
}

func TestAccountTransactionsWhereBuildsUnionSubquery(t *testing.T) {
	where, err := accountTransactionsWhere(map[string]string{"address": "0x02"})
	require.NoError(t, err)
	assert.Contains(t, where, "owner = '0x02'")
	assert.Contains(t, where, "to_address = '0x02'")
	assert.Contains(t, where, "UNION")
}

func TestEscapeLiteralEscapesSingleQuotes(t *testing.T) {
	assert.Equal(t, "o''brien", escapeLiteral("o'brien"))
}

func TestParsePaginationExtractsAllFields(t *testing.T) {
	q := url.Values{
		"after":    {"abc"},
		"first":    {"10"},
		"order_by": {"desc"},
	}
	p, err := parsePagination(q)
	require.NoError(t, err)
	assert.Equal(t, "abc", p.After)
	require.NotNil(t, p.First)
	assert.Equal(t, 10, *p.First)
}

func TestParsePaginationRejectsNonIntegerLimit(t *testing.T) {
	q := url.Values{"limit": {"not-a-number"}}
	_, err := parsePagination(q)
	assert.ErrorIs(t, err, errInvalidFormat)
}

func TestParsePaginationRejectsInvalidOrderBy(t *testing.T) {
	q := url.Values{"order_by": {"sideways"}}
	_, err := parsePagination(q)
	assert.ErrorIs(t, err, errInvalidFormat)
}

func TestParsePaginationThenValidateCatchesMixedStrategy(t *testing.T) {
	q := url.Values{"after": {"10000"}, "limit": {"50"}}
	p, err := parsePagination(q)
	require.NoError(t, err)
	assert.ErrorIs(t, p.Validate(), query.ErrMixedPaginationStrategy)
}

func TestErrorStatusMapsValidationTo400(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, errorStatus(query.ErrConflictingFirstLast))
}

func TestErrorStatusMapsUnknownTo500(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, errorStatus(assert.AnError))
}

func TestWriteDataEmitsDataEnvelope(t *testing.T) {
	w := httptest.NewRecorder()
	writeData(w, nil)
	assert.JSONEq(t, `{"data":[]}`, w.Body.String())
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWriteErrorEmitsErrorBody(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, http.StatusBadRequest, "bad request")
	assert.JSONEq(t, `{"error":"bad request"}`, w.Body.String())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExtractAPIKeyPrefersHeader(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/blocks?api_key=from-query", nil)
	r.Header.Set("Authorization", "Bearer from-header")
	assert.Equal(t, "from-header", extractAPIKey(r))
}

func TestExtractAPIKeyFallsBackToQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/blocks?api_key=from-query", nil)
	assert.Equal(t, "from-query", extractAPIKey(r))
}

func TestAPIRejectsMissingKeyBeforeRouting(t *testing.T) {
	a := New(nil, nil, testRegistry(t), testLogger())
	srv := httptest.NewServer(a)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/blocks")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
