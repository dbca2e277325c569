package query

import (
	"fmt"

	"github.com/launchpad-hq/lpcore/tenant"
)

// MongoOpType is the closed set of document operations the Mongo driver
// variant dispatches on.
type MongoOpType string

const (
	MongoFind             MongoOpType = "find"
	MongoAggregate        MongoOpType = "aggregate"
	MongoInsertOne        MongoOpType = "insertOne"
	MongoInsertMany       MongoOpType = "insertMany"
	MongoUpdateOne        MongoOpType = "updateOne"
	MongoUpdateMany       MongoOpType = "updateMany"
	MongoDeleteOne        MongoOpType = "deleteOne"
	MongoDeleteMany       MongoOpType = "deleteMany"
	MongoFindOneAndUpdate MongoOpType = "findOneAndUpdate"
	MongoFindOneAndDelete MongoOpType = "findOneAndDelete"
	MongoCountDocuments   MongoOpType = "countDocuments"
)

// MongoOperation is the compiled form of a query IR node against the
// document backend.
type MongoOperation struct {
	Type       MongoOpType
	Collection string
	Filter     map[string]any
	Update     map[string]any
	Documents  []map[string]any
	Sort       map[string]int
	Skip       *int64
	Limit      *int64
	Projection map[string]int
	Pipeline   []map[string]any
}

// CompileMongo lowers a query IR node to a MongoOperation. Tenant
// predicates are always injected on both the filter and the
// insert-document path when the Compiler has InjectTenant set — per
// spec.md's design-notes resolution of the source's inconsistent
// behavior here, the engine always does both rather than sometimes one.
func (c *Compiler) CompileMongo(stmt any, ctx *tenant.Context) (*MongoOperation, error) {
	if c.cfg.InjectTenant && ctx == nil {
		return nil, fmt.Errorf("query: tenant context is required when tenant injection is enabled")
	}
	if ctx != nil {
		if err := ctx.Validate(); err != nil {
			return nil, err
		}
	}

	switch s := stmt.(type) {
	case *Select:
		return c.compileMongoSelect(s, ctx)
	case *Insert:
		return c.compileMongoInsert(s, ctx)
	case *Update:
		return c.compileMongoUpdate(s, ctx)
	case *Delete:
		return c.compileMongoDelete(s, ctx)
	default:
		return nil, fmt.Errorf("query: unsupported statement type %T", stmt)
	}
}

func (c *Compiler) mongoFilter(where []WhereClause, ctx *tenant.Context) (map[string]any, error) {
	filter := map[string]any{}
	for _, cl := range where {
		frag, err := mongoClause(cl)
		if err != nil {
			return nil, err
		}
		mergeFilterClause(filter, cl.Column, frag)
	}
	if c.cfg.InjectTenant {
		filter[c.cfg.TenantColumns.AppID] = ctx.AppID
		filter[c.cfg.TenantColumns.OrganizationID] = ctx.OrganizationID
	}
	return filter, nil
}

// mergeFilterClause folds a new clause into filter, combining repeated
// use of the same column (e.g. two range bounds) into one document.
func mergeFilterClause(filter map[string]any, column string, frag any) {
	existing, ok := filter[column]
	if !ok {
		filter[column] = frag
		return
	}
	existingMap, existingIsMap := existing.(map[string]any)
	fragMap, fragIsMap := frag.(map[string]any)
	if existingIsMap && fragIsMap {
		for k, v := range fragMap {
			existingMap[k] = v
		}
		return
	}
	filter[column] = frag
}

func mongoClause(cl WhereClause) (any, error) {
	switch cl.Operator {
	case OpEq:
		return cl.Value, nil
	case OpNeq:
		return map[string]any{"$ne": cl.Value}, nil
	case OpGt:
		return map[string]any{"$gt": cl.Value}, nil
	case OpGte:
		return map[string]any{"$gte": cl.Value}, nil
	case OpLt:
		return map[string]any{"$lt": cl.Value}, nil
	case OpLte:
		return map[string]any{"$lte": cl.Value}, nil
	case OpIn:
		values, ok := asSlice(cl.Value)
		if !ok || len(values) == 0 {
			return nil, fmt.Errorf("query: IN requires a non-empty value list")
		}
		return map[string]any{"$in": values}, nil
	case OpNotIn:
		values, ok := asSlice(cl.Value)
		if !ok || len(values) == 0 {
			return nil, fmt.Errorf("query: NOT IN requires a non-empty value list")
		}
		return map[string]any{"$nin": values}, nil
	case OpLike:
		return map[string]any{"$regex": fmt.Sprintf("^%v$", cl.Value)}, nil
	case OpILike:
		return map[string]any{"$regex": fmt.Sprintf("^%v$", cl.Value), "$options": "i"}, nil
	case OpIsNull:
		return map[string]any{"$eq": nil}, nil
	case OpIsNotNull:
		return map[string]any{"$ne": nil}, nil
	default:
		return nil, fmt.Errorf("query: unsupported mongo operator %q", cl.Operator)
	}
}

func (c *Compiler) compileMongoSelect(s *Select, ctx *tenant.Context) (*MongoOperation, error) {
	filter, err := c.mongoFilter(s.Where, ctx)
	if err != nil {
		return nil, err
	}

	op := &MongoOperation{Collection: s.Table}

	if len(s.GroupBy) == 0 {
		op.Type = MongoFind
		op.Filter = filter
		if len(s.Columns) > 0 {
			op.Projection = map[string]int{}
			for _, col := range s.Columns {
				op.Projection[col] = 1
			}
		}
		if len(s.OrderBy) > 0 {
			op.Sort = map[string]int{}
			for _, ob := range s.OrderBy {
				dir, derr := validateDirection(ob.Direction)
				if derr != nil {
					return nil, derr
				}
				v := 1
				if dir == "DESC" {
					v = -1
				}
				op.Sort[ob.Column] = v
			}
		}
		if s.Offset != nil {
			v := int64(*s.Offset)
			op.Skip = &v
		}
		if s.Limit != nil {
			v := int64(*s.Limit)
			op.Limit = &v
		}
		return op, nil
	}

	// groupBy present: $match -> $group -> $sort -> $skip -> $limit
	op.Type = MongoAggregate
	group := map[string]any{"_id": groupID(s.GroupBy)}
	pipeline := []map[string]any{{"$match": filter}, {"$group": group}}
	if len(s.OrderBy) > 0 {
		sort := map[string]int{}
		for _, ob := range s.OrderBy {
			dir, derr := validateDirection(ob.Direction)
			if derr != nil {
				return nil, derr
			}
			v := 1
			if dir == "DESC" {
				v = -1
			}
			sort[ob.Column] = v
		}
		pipeline = append(pipeline, map[string]any{"$sort": sort})
	}
	if s.Offset != nil {
		pipeline = append(pipeline, map[string]any{"$skip": int64(*s.Offset)})
	}
	if s.Limit != nil {
		pipeline = append(pipeline, map[string]any{"$limit": int64(*s.Limit)})
	}
	op.Pipeline = pipeline
	return op, nil
}

func groupID(cols []string) any {
	if len(cols) == 1 {
		return "$" + cols[0]
	}
	id := map[string]any{}
	for _, c := range cols {
		id[c] = "$" + c
	}
	return id
}

func (c *Compiler) compileMongoInsert(ins *Insert, ctx *tenant.Context) (*MongoOperation, error) {
	if len(ins.Rows) == 0 {
		return nil, fmt.Errorf("query: insert requires at least one row")
	}
	docs := make([]map[string]any, len(ins.Rows))
	for i, row := range ins.Rows {
		doc := map[string]any{}
		for _, cv := range row {
			doc[cv.Column] = cv.Value
		}
		if c.cfg.InjectTenant {
			if _, ok := doc[c.cfg.TenantColumns.AppID]; !ok {
				doc[c.cfg.TenantColumns.AppID] = ctx.AppID
			}
			if _, ok := doc[c.cfg.TenantColumns.OrganizationID]; !ok {
				doc[c.cfg.TenantColumns.OrganizationID] = ctx.OrganizationID
			}
		}
		docs[i] = doc
	}
	if len(docs) == 1 {
		return &MongoOperation{Type: MongoInsertOne, Collection: ins.Table, Documents: docs}, nil
	}
	return &MongoOperation{Type: MongoInsertMany, Collection: ins.Table, Documents: docs}, nil
}

// compileMongoUpdate compiles to MongoFindOneAndUpdate when the caller
// asked for Returning columns (the one case SQL's RETURNING and Mongo's
// findOneAndUpdate line up: both hand back the affected document instead
// of just a count), and to MongoUpdateMany otherwise.
func (c *Compiler) compileMongoUpdate(u *Update, ctx *tenant.Context) (*MongoOperation, error) {
	if len(u.Set) == 0 {
		return nil, fmt.Errorf("query: update requires at least one SET column")
	}
	filter, err := c.mongoFilter(u.Where, ctx)
	if err != nil {
		return nil, err
	}
	set := map[string]any{}
	for _, cv := range u.Set {
		set[cv.Column] = cv.Value
	}
	op := &MongoOperation{
		Type:       MongoUpdateMany,
		Collection: u.Table,
		Filter:     filter,
		Update:     map[string]any{"$set": set},
	}
	if len(u.Returning) > 0 {
		op.Type = MongoFindOneAndUpdate
		op.Projection = map[string]int{}
		for _, col := range u.Returning {
			op.Projection[col] = 1
		}
	}
	return op, nil
}

// compileMongoDelete compiles to MongoFindOneAndDelete when the caller
// asked for Returning columns, and to MongoDeleteMany otherwise.
func (c *Compiler) compileMongoDelete(d *Delete, ctx *tenant.Context) (*MongoOperation, error) {
	if !c.cfg.InjectTenant && len(d.Where) == 0 {
		return nil, fmt.Errorf("query: delete without tenant injection requires at least one filter clause")
	}
	filter, err := c.mongoFilter(d.Where, ctx)
	if err != nil {
		return nil, err
	}
	op := &MongoOperation{Type: MongoDeleteMany, Collection: d.Table, Filter: filter}
	if len(d.Returning) > 0 {
		op.Type = MongoFindOneAndDelete
		op.Projection = map[string]int{}
		for _, col := range d.Returning {
			op.Projection[col] = 1
		}
	}
	return op, nil
}
