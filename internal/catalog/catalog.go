// Package catalog is the demo model served by the exprmap command: a few
// entity types, their projections and sample rows.
package catalog

import (
	"context"
	"fmt"
	"reflect"

	"exprmap/expr"
	"exprmap/mapper"
	"exprmap/query"
	"exprmap/sqlite"
)

// RoleAdmin sees every member.
const RoleAdmin = "admin"

// Viewer is the context value describing who reads a projection.
type Viewer struct {
	Role string
}

type Org struct {
	Name string
	City string
}

type Person struct {
	ID     int
	Name   string
	Email  *string
	Age    int
	Salary int
	Org    Org
}

type PersonDTO struct {
	ID      int
	Name    string
	Email   string
	Age     int
	Salary  int
	OrgName string
	OrgCity string
}

type Order struct {
	ID       int
	Customer Person
	Amount   int
	Discount int
}

type OrderDTO struct {
	ID           int
	Customer     PersonDTO
	CustomerName string
	Total        int
}

// NewRegistry returns a registry holding every catalog rule.
func NewRegistry(cfg mapper.Config) (*mapper.Registry, error) {
	reg := mapper.NewRegistry(cfg)

	// orders reference people before that rule exists
	orders, err := mapper.CreateMap[Order, OrderDTO](reg, expr.Func[Order]("o", func(o *expr.Param) expr.Node {
		return expr.NewOf[OrderDTO](
			expr.B("Total", expr.Sub(expr.Field(o, "Amount"), expr.Field(o, "Discount"))),
		)
	}))
	if err != nil {
		return nil, err
	}

	orders.AfterMap(func(_ *mapper.Context, d *OrderDTO) {
		d.Total = max(d.Total, 0)
	})

	people, err := mapper.CreateMap[Person, PersonDTO](reg)
	if err != nil {
		return nil, err
	}

	people.IgnoreRuntimeMembers(func(ctx *mapper.Context) []string {
		if v, _ := mapper.Value[Viewer](ctx); v.Role != RoleAdmin {
			return []string{"Salary"}
		}

		return nil
	})

	people.CreateRuntimeMap(func(ctx *mapper.Context) (*expr.Lambda, error) {
		if v, ok := mapper.Value[Viewer](ctx); ok && v.Role != "" {
			return nil, nil
		}

		// anonymous readers do not see addresses
		return expr.Func[Person]("p", func(*expr.Param) expr.Node {
			return expr.NewOf[PersonDTO](expr.B("Email", expr.Constant("")))
		}), nil
	})

	return reg, nil
}

// Pair binds a registered rule to its sample rows and storage.
type Pair struct {
	Source reflect.Type
	Dest   reflect.Type
	Table  string

	memory func() query.Queryable
	stored func(*sqlite.DB) query.Queryable
	seed   func(context.Context, *sqlite.DB) error
	run    func(context.Context, *mapper.Registry, query.Queryable, *Viewer) (any, error)
}

func newPair[S, D any](table string, rows func() []S) Pair {
	return Pair{
		Source: reflect.TypeFor[S](),
		Dest:   reflect.TypeFor[D](),
		Table:  table,
		memory: func() query.Queryable { return query.FromSlice(rows()) },
		stored: func(db *sqlite.DB) query.Queryable { return sqlite.From[S](db, table) },
		seed: func(ctx context.Context, db *sqlite.DB) error {
			if err := sqlite.CreateTable[S](ctx, db, table); err != nil {
				return err
			}

			n, err := query.Count(ctx, sqlite.From[S](db, table))
			if err != nil || n > 0 {
				return err
			}

			return sqlite.Insert(ctx, db, table, rows()...)
		},
		run: func(ctx context.Context, reg *mapper.Registry, q query.Queryable, v *Viewer) (any, error) {
			m := mapper.Project[S](reg, q)
			if v != nil {
				m = m.Context(*v)
			}

			return mapper.To[D](ctx, m, query.ToSlice[D])
		},
	}
}

// Pairs lists the catalog pairs that have sample data.
func Pairs() []Pair {
	return []Pair{
		newPair[Person, PersonDTO]("people", People),
		newPair[Order, OrderDTO]("orders", Orders),
	}
}

// Lookup returns the sample pair of a registered rule.
func Lookup(rule *mapper.TypeMap) (Pair, error) {
	for _, p := range Pairs() {
		if p.Source == rule.Key().Source && p.Dest == rule.Key().Dest {
			return p, nil
		}
	}

	return Pair{}, fmt.Errorf("no sample data for %s", rule)
}

// Memory returns a query over the sample rows.
func (p Pair) Memory() query.Queryable { return p.memory() }

// Stored returns a query over the pair's table in db.
func (p Pair) Stored(db *sqlite.DB) query.Queryable { return p.stored(db) }

// Seed creates the pair's table in db and fills it when empty.
func (p Pair) Seed(ctx context.Context, db *sqlite.DB) error { return p.seed(ctx, db) }

// Run materializes q through the registered rule. A nil viewer reads
// anonymously.
func (p Pair) Run(ctx context.Context, reg *mapper.Registry, q query.Queryable, v *Viewer) (any, error) {
	return p.run(ctx, reg, q, v)
}

func email(s string) *string { return &s }

// People returns the sample people.
func People() []Person {
	acme := Org{Name: "Acme", City: "Oslo"}
	initech := Org{Name: "Initech", City: "Austin"}

	return []Person{
		{ID: 1, Name: "Ada", Email: email("ada@acme.test"), Age: 36, Salary: 120, Org: acme},
		{ID: 2, Name: "Grace", Age: 45, Salary: 150, Org: initech},
		{ID: 3, Name: "Linus", Email: email("linus@acme.test"), Age: 28, Salary: 90, Org: acme},
	}
}

// Orders returns the sample orders.
func Orders() []Order {
	people := People()

	return []Order{
		{ID: 10, Customer: people[0], Amount: 300, Discount: 20},
		{ID: 11, Customer: people[1], Amount: 80, Discount: 100},
		{ID: 12, Customer: people[2], Amount: 45, Discount: 0},
	}
}
