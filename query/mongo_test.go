package query_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchpad-hq/lpcore/query"
	"github.com/launchpad-hq/lpcore/tenant"
)

func TestCompileMongoSelect_FilterAndTenantInjection(t *testing.T) {
	c := query.New(query.Config{InjectTenant: true})
	ctx := &tenant.Context{AppID: "app_1", OrganizationID: "org_1"}

	stmt := &query.Select{
		Table: "orders",
		Where: []query.WhereClause{
			{Column: "total", Operator: query.OpGt, Value: 100},
		},
		OrderBy: []query.OrderBy{{Column: "created_at", Direction: query.Desc}},
		Limit:   intPtr(10),
	}

	op, err := c.CompileMongo(stmt, ctx)
	require.NoError(t, err)
	assert.Equal(t, query.MongoFind, op.Type)
	assert.Equal(t, "orders", op.Collection)
	assert.Equal(t, map[string]any{
		"total":           map[string]any{"$gt": 100},
		"app_id":          "app_1",
		"organization_id": "org_1",
	}, op.Filter)
	assert.Equal(t, map[string]int{"created_at": -1}, op.Sort)
	require.NotNil(t, op.Limit)
	assert.Equal(t, int64(10), *op.Limit)
}

func TestCompileMongoSelect_InBecomesDollarIn(t *testing.T) {
	c := query.New(query.Config{})
	stmt := &query.Select{
		Table: "orders",
		Where: []query.WhereClause{
			{Column: "status", Operator: query.OpIn, Value: []any{"paid", "shipped"}},
		},
	}
	op, err := c.CompileMongo(stmt, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"status": map[string]any{"$in": []any{"paid", "shipped"}}}, op.Filter)
}

func TestCompileMongoSelect_LikeBecomesAnchoredRegex(t *testing.T) {
	c := query.New(query.Config{})
	stmt := &query.Select{
		Table: "users",
		Where: []query.WhereClause{{Column: "email", Operator: query.OpILike, Value: "%@example.com"}},
	}
	op, err := c.CompileMongo(stmt, nil)
	require.NoError(t, err)
	frag, ok := op.Filter["email"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "i", frag["$options"])
	assert.Contains(t, frag["$regex"], "@example.com")
}

func TestCompileMongoSelect_GroupByProducesAggregationPipeline(t *testing.T) {
	c := query.New(query.Config{})
	stmt := &query.Select{
		Table:   "orders",
		GroupBy: []string{"status"},
		OrderBy: []query.OrderBy{{Column: "status", Direction: query.Asc}},
		Limit:   intPtr(5),
	}
	op, err := c.CompileMongo(stmt, nil)
	require.NoError(t, err)
	assert.Equal(t, query.MongoAggregate, op.Type)
	require.Len(t, op.Pipeline, 4)
	assert.Contains(t, op.Pipeline[0], "$match")
	assert.Contains(t, op.Pipeline[1], "$group")
	assert.Contains(t, op.Pipeline[2], "$sort")
	assert.Contains(t, op.Pipeline[3], "$limit")
}

func TestCompileMongoInsert_SingleBecomesInsertOne(t *testing.T) {
	c := query.New(query.Config{InjectTenant: true})
	ctx := &tenant.Context{AppID: "app_1", OrganizationID: "org_1"}
	stmt := &query.Insert{
		Table: "users",
		Rows:  []query.Row{{{Column: "id", Value: "u1"}}},
	}
	op, err := c.CompileMongo(stmt, ctx)
	require.NoError(t, err)
	assert.Equal(t, query.MongoInsertOne, op.Type)
	require.Len(t, op.Documents, 1)
	assert.Equal(t, "app_1", op.Documents[0]["app_id"])
	assert.Equal(t, "org_1", op.Documents[0]["organization_id"])
}

func TestCompileMongoInsert_ManyBecomesInsertMany(t *testing.T) {
	c := query.New(query.Config{})
	stmt := &query.Insert{
		Table: "users",
		Rows: []query.Row{
			{{Column: "id", Value: "u1"}},
			{{Column: "id", Value: "u2"}},
		},
	}
	op, err := c.CompileMongo(stmt, nil)
	require.NoError(t, err)
	assert.Equal(t, query.MongoInsertMany, op.Type)
	assert.Len(t, op.Documents, 2)
}

func TestCompileMongoUpdate_ProducesSetDocument(t *testing.T) {
	c := query.New(query.Config{})
	stmt := &query.Update{
		Table: "users",
		Set:   query.Row{{Column: "email", Value: "b@example.com"}},
		Where: []query.WhereClause{{Column: "id", Operator: query.OpEq, Value: "u1"}},
	}
	op, err := c.CompileMongo(stmt, nil)
	require.NoError(t, err)
	assert.Equal(t, query.MongoUpdateMany, op.Type)
	assert.Equal(t, map[string]any{"$set": map[string]any{"email": "b@example.com"}}, op.Update)
	assert.Equal(t, map[string]any{"id": "u1"}, op.Filter)
}

func TestCompileMongoUpdate_WithReturningProducesFindOneAndUpdate(t *testing.T) {
	c := query.New(query.Config{})
	stmt := &query.Update{
		Table:     "users",
		Set:       query.Row{{Column: "email", Value: "b@example.com"}},
		Where:     []query.WhereClause{{Column: "id", Operator: query.OpEq, Value: "u1"}},
		Returning: []string{"id", "email"},
	}
	op, err := c.CompileMongo(stmt, nil)
	require.NoError(t, err)
	assert.Equal(t, query.MongoFindOneAndUpdate, op.Type)
	assert.Equal(t, map[string]any{"$set": map[string]any{"email": "b@example.com"}}, op.Update)
	assert.Equal(t, map[string]any{"id": "u1"}, op.Filter)
	assert.Equal(t, map[string]int{"id": 1, "email": 1}, op.Projection)
}

func TestCompileMongoDelete_WithoutFilterAndWithoutTenantRejected(t *testing.T) {
	c := query.New(query.Config{})
	_, err := c.CompileMongo(&query.Delete{Table: "users"}, nil)
	assert.Error(t, err)
}

func TestCompileMongoDelete_WithReturningProducesFindOneAndDelete(t *testing.T) {
	c := query.New(query.Config{})
	stmt := &query.Delete{
		Table:     "users",
		Where:     []query.WhereClause{{Column: "id", Operator: query.OpEq, Value: "u1"}},
		Returning: []string{"id"},
	}
	op, err := c.CompileMongo(stmt, nil)
	require.NoError(t, err)
	assert.Equal(t, query.MongoFindOneAndDelete, op.Type)
	assert.Equal(t, map[string]any{"id": "u1"}, op.Filter)
	assert.Equal(t, map[string]int{"id": 1}, op.Projection)
}

func intPtr(v int) *int { return &v }
