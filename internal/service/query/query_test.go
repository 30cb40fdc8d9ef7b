package query

import (
	"context"
	"log/slog"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipeterm/internal/domain"
	"pipeterm/internal/engine"
	"pipeterm/internal/lake"
	"pipeterm/internal/testutil"
)

// newTestService builds a service over a temp root holding a "sales" lake with
// orders.csv and customers.csv.
func newTestService(t *testing.T) (*QueryService, *engine.Gateway, string) {
	t.Helper()
	root := t.TempDir()
	testutil.WriteLake(t, root, "sales", map[string]string{
		"orders.csv":    "id,customer,amount\n1,acme,10\n2,acme,15\n3,globex,7\n",
		"customers.csv": "name,country\nacme,US\nglobex,DE\n",
	})

	logger := slog.New(slog.DiscardHandler)
	resolver := lake.NewResolver(root)
	gw := engine.NewGateway(resolver, logger)
	return NewQueryService(resolver, gw, root, logger), gw, root
}

func TestQueryService_Execute(t *testing.T) {
	t.Parallel()

	svc, gw, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		lake     string
		sql      string
		check    func(t *testing.T, res *domain.QueryResult)
		checkErr func(t *testing.T, err error)
	}{
		{
			name: "join across views",
			lake: "sales",
			sql:  "SELECT c.country, SUM(o.amount) AS total FROM orders o JOIN customers c ON o.customer = c.name GROUP BY c.country ORDER BY c.country",
			check: func(t *testing.T, res *domain.QueryResult) {
				t.Helper()
				assert.Equal(t, []string{"country", "total"}, res.Columns)
				require.Len(t, res.Rows, 2)
				assert.Equal(t, "DE", res.Rows[0]["country"])
				assert.EqualValues(t, 25, res.Rows[1]["total"])
			},
		},
		{
			name: "blank sql",
			lake: "sales",
			sql:  "   ",
			checkErr: func(t *testing.T, err error) {
				t.Helper()
				var valErr *domain.ValidationError
				require.ErrorAs(t, err, &valErr)
			},
		},
		{
			name: "unknown lake",
			lake: "marketing",
			sql:  "SELECT 1",
			checkErr: func(t *testing.T, err error) {
				t.Helper()
				var nf *domain.NotFoundError
				require.ErrorAs(t, err, &nf)
			},
		},
		{
			name: "engine rejects statement",
			lake: "sales",
			sql:  "SELECT * FROM invoices",
			checkErr: func(t *testing.T, err error) {
				t.Helper()
				var qErr *domain.QueryError
				require.ErrorAs(t, err, &qErr)
				assert.Contains(t, err.Error(), "invoices")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Execute(ctx, tt.lake, tt.sql)
			if tt.checkErr != nil {
				tt.checkErr(t, err)
				assert.Nil(t, res)
				return
			}
			require.NoError(t, err)
			tt.check(t, res)
		})
	}
	assert.Zero(t, gw.OpenSessions())
}

func TestQueryService_Listings(t *testing.T) {
	t.Parallel()

	svc, gw, _ := newTestService(t)
	ctx := context.Background()

	lakes, err := svc.ListLakes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"sales"}, lakes)

	files, err := svc.ListFiles(ctx, "sales")
	require.NoError(t, err)
	assert.Equal(t, []string{"customers.csv", "orders.csv"}, files)

	tables, err := svc.ListTables(ctx, "sales")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"customers", "orders"}, tables)

	_, err = svc.ListTables(ctx, "nope")
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)

	assert.Zero(t, gw.OpenSessions())
}

func TestQueryService_Health(t *testing.T) {
	t.Parallel()

	svc, gw, root := newTestService(t)
	h, err := svc.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)
	assert.NotEmpty(t, h.DuckDBVersion)
	assert.Equal(t, root, h.LakeRoot)
	assert.Zero(t, gw.OpenSessions())
}

func TestQueryService_PropagatesResolverErrors(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.DiscardHandler)
	resolver := &testutil.MockLakeResolver{
		ListLakesFn: func(context.Context) ([]string, error) {
			return nil, domain.ErrEngine(errors.New("permission denied"), "list lakes")
		},
	}
	svc := NewQueryService(resolver, engine.NewGateway(resolver, logger), "/lakes", logger)

	_, err := svc.ListLakes(context.Background())
	var engErr *domain.EngineError
	require.ErrorAs(t, err, &engErr)

	_, err = svc.ListFiles(context.Background(), "sales")
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
}
