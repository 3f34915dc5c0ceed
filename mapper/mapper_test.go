package mapper_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exprmap/expr"
	"exprmap/internal/diagnostic"
	"exprmap/mapper"
)

func newRegistry(t *testing.T) *mapper.Registry {
	t.Helper()

	return mapper.NewRegistry(mapper.DefaultConfig())
}

func project[S, D any](t *testing.T, reg *mapper.Registry, ctx *mapper.Context, src S) D {
	t.Helper()

	proj, err := mapper.GetMap[S, D](reg, ctx)
	require.NoError(t, err)
	require.False(t, expr.HasRefs(proj), "projection still references rules: %s", proj)

	out, err := expr.Eval(proj, src)
	require.NoError(t, err, spew.Sdump(src))

	return out.(D)
}

func TestIdentityConvention(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t)
	_, err := mapper.CreateMap[Person, PersonDTO](reg)
	require.NoError(t, err)

	for _, p := range []Person{{}, {Name: "Ada", Age: 36}, {Name: "Linus", Age: -1}} {
		got := project[Person, PersonDTO](t, reg, nil, p)
		assert.Equal(t, PersonDTO{Name: p.Name, Age: p.Age}, got)
	}
}

func TestConventionDispatch(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t)
	_, err := mapper.CreateMap[Employee, EmployeeDTO](reg)
	require.NoError(t, err)
	_, err = mapper.CreateMap[Country, CountryDTO](reg)
	require.NoError(t, err)

	nick := "ace"
	joined := time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		src  Employee
		want EmployeeDTO
	}{
		{
			name: "fully populated",
			src: Employee{
				Name:     "Grace",
				Nick:     &nick,
				Level:    7,
				Org:      &Org{Name: "Navy", Country: &Country{Code: "US"}},
				Tags:     []string{"cobol", "compilers"},
				Badges:   [3]int{1, 2, 3},
				Joined:   joined,
				Internal: "x",
			},
			want: EmployeeDTO{
				Name:       "Grace",
				Nick:       "ace",
				Level:      ptr(7),
				OrgName:    "Navy",
				OrgCountry: &CountryDTO{Code: "US"},
				Tags:       []string{"cobol", "compilers"},
				Badges:     []int{1, 2, 3},
				Joined:     joined,
				Internal:   "x",
			},
		},
		{
			name: "nil pointers propagate",
			src:  Employee{Name: "Anon"},
			want: EmployeeDTO{
				Name:   "Anon",
				Level:  ptr(0),
				Badges: []int{0, 0, 0},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := project[Employee, EmployeeDTO](t, reg, nil, tt.src)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("projection mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNestedFlattening(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t)
	_, err := mapper.CreateMap[Employee, EmployeeDTO](reg)
	require.NoError(t, err)

	proj, err := mapper.GetMap[Employee, EmployeeDTO](reg, nil)
	require.NoError(t, err)

	init := proj.Body.(*expr.Init)
	b, ok := init.Lookup("OrgName")
	require.True(t, ok)
	assert.Equal(t, "e.Org.Name", b.Value.String())

	got := project[Employee, EmployeeDTO](t, reg, nil, Employee{Org: &Org{Name: "Bell Labs"}})
	assert.Equal(t, "Bell Labs", got.OrgName)
}

func TestSelfTypedFlattening(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t)
	_, err := mapper.CreateMap[Staff, StaffDTO](reg)
	require.NoError(t, err)

	tests := []struct {
		name string
		src  Staff
		want StaffDTO
	}{
		{"with manager", Staff{Name: "Ann", Manager: &Staff{Name: "Bob"}}, StaffDTO{Name: "Ann", ManagerName: "Bob"}},
		{"without manager", Staff{Name: "Bob"}, StaffDTO{Name: "Bob"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := project[Staff, StaffDTO](t, reg, nil, tt.src)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCollectionRecursion(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t)
	_, err := mapper.CreateMap[Skill, SkillDTO](reg)
	require.NoError(t, err)
	_, err = mapper.CreateMap[Team, TeamDTO](reg)
	require.NoError(t, err)

	team := Team{Name: "core", Skills: []Skill{{"go", 3}, {"sql", 2}, {"c", 1}}}
	got := project[Team, TeamDTO](t, reg, nil, team)

	require.Len(t, got.Skills, len(team.Skills))
	for i, s := range team.Skills {
		assert.Equal(t, SkillDTO{Title: s.Title, Level: s.Level}, got.Skills[i])
	}
}

func TestCustomMapOverridesConvention(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t)
	custom := expr.Func[Person]("x", func(x *expr.Param) expr.Node {
		return expr.NewOf[PersonDTO](expr.B("Name", expr.Upper(expr.Field(x, "Name"))))
	})

	_, err := mapper.CreateMap[Person, PersonDTO](reg, custom)
	require.NoError(t, err)

	proj, err := mapper.GetMap[Person, PersonDTO](reg, nil)
	require.NoError(t, err)

	// the custom parameter is unified with the rule parameter
	assert.Equal(t, "p => mapper_test.PersonDTO{Age: p.Age, Name: upper(p.Name)}", proj.String())

	got := project[Person, PersonDTO](t, reg, nil, Person{Name: "ada", Age: 36})
	assert.Equal(t, PersonDTO{Name: "ADA", Age: 36}, got)
}

func TestIgnoreMembers(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t)
	rule, err := mapper.CreateMap[Employee, EmployeeDTO](reg)
	require.NoError(t, err)

	require.NoError(t, rule.IgnoreMembers("Internal"))
	require.NoError(t, rule.IgnoreFields(expr.Field(expr.P[EmployeeDTO]("d"), "Joined")))

	proj, err := mapper.GetMap[Employee, EmployeeDTO](reg, nil)
	require.NoError(t, err)

	names := proj.Body.(*expr.Init).Names()
	assert.NotContains(t, names, "Internal")
	assert.NotContains(t, names, "Joined")

	got := project[Employee, EmployeeDTO](t, reg, nil, Employee{Internal: "secret", Joined: time.Now()})
	assert.Empty(t, got.Internal)
	assert.True(t, got.Joined.IsZero())

	ignored := rule.Diagnostics().WithCode(diagnostic.CodeMemberIgnored)
	assert.Len(t, ignored, 2)
}

func TestIgnoreValidation(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t)
	rule, err := mapper.CreateMap[Person, PersonDTO](reg)
	require.NoError(t, err)

	assert.ErrorIs(t, rule.IgnoreMembers("Missing"), mapper.ErrUnknownMember)

	err = rule.IgnoreMembers("Nam")
	require.ErrorIs(t, err, mapper.ErrUnknownMember)
	assert.Contains(t, err.Error(), `(did you mean "Name"?)`)

	d := expr.P[PersonDTO]("d")
	assert.ErrorIs(t, rule.IgnoreFields(expr.Upper(expr.Field(d, "Name"))), mapper.ErrNotMemberAccess)
	assert.ErrorIs(t, rule.IgnoreFields(expr.Field(expr.P[Person]("p"), "Name")), mapper.ErrNotMemberAccess)
}

func TestIgnoreRemovesCustomBinding(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t)
	custom := expr.Func[Person]("x", func(x *expr.Param) expr.Node {
		return expr.NewOf[PersonDTO](expr.B("Age", expr.Constant(1)))
	})

	rule, err := mapper.CreateMap[Person, PersonDTO](reg, custom)
	require.NoError(t, err)
	require.NoError(t, rule.IgnoreMembers("Age"))

	got := project[Person, PersonDTO](t, reg, nil, Person{Name: "a", Age: 5})
	assert.Equal(t, PersonDTO{Name: "a"}, got)
}

func TestDuplicateRegistrationFails(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t)
	_, err := mapper.CreateMap[Person, PersonDTO](reg)
	require.NoError(t, err)

	_, err = mapper.CreateMap[Person, PersonDTO](reg)
	assert.ErrorIs(t, err, mapper.ErrDuplicateMap)
	assert.Equal(t, 1, reg.Count())
}

func TestInvalidCustomMap(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t)

	notInit := expr.Func[Person]("x", func(x *expr.Param) expr.Node { return expr.Field(x, "Name") })
	_, err := mapper.CreateMap[Person, PersonDTO](reg, notInit)
	assert.ErrorIs(t, err, mapper.ErrInvalidCustomMap)

	wrongSource := expr.Func[Skill]("s", func(s *expr.Param) expr.Node { return expr.NewOf[PersonDTO]() })
	_, err = mapper.CreateMap[Person, PersonDTO](reg, wrongSource)
	assert.ErrorIs(t, err, mapper.ErrInvalidCustomMap)

	assert.Zero(t, reg.Count())
}

func TestForwardReferenceAnyOrder(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t)
	_, err := mapper.CreateMap[Team, TeamDTO](reg)
	require.NoError(t, err)

	// resolved before the element rule exists: Skills cannot bind yet
	early := project[Team, TeamDTO](t, reg, nil, Team{Skills: []Skill{{"go", 1}}})
	assert.Nil(t, early.Skills)

	_, err = mapper.CreateMap[Skill, SkillDTO](reg)
	require.NoError(t, err)
	_, err = mapper.CreateMap[Person, PersonDTO](reg)
	require.NoError(t, err)

	got := project[Team, TeamDTO](t, reg, nil, Team{
		Name:   "core",
		Skills: []Skill{{"go", 1}},
		Lead:   &Person{Name: "Rob", Age: 60},
	})
	assert.Equal(t, TeamDTO{
		Name:     "core",
		Skills:   []SkillDTO{{"go", 1}},
		Lead:     &PersonDTO{Name: "Rob", Age: 60},
		LeadName: "Rob",
	}, got)

	noLead := project[Team, TeamDTO](t, reg, nil, Team{Name: "solo"})
	assert.Nil(t, noLead.Lead)
}

func TestGetMapNotFound(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t)
	_, err := mapper.GetMap[Person, PersonDTO](reg, nil)
	assert.ErrorIs(t, err, mapper.ErrMapNotFound)
}

func TestIncludeBase(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t)
	revision := expr.Func[Entity]("x", func(x *expr.Param) expr.Node {
		return expr.NewOf[EntityDTO](expr.B("Revision", expr.Field(x, "Version")))
	})

	_, err := mapper.CreateMap[Entity, EntityDTO](reg, revision)
	require.NoError(t, err)

	rule, err := mapper.CreateMap[Product, ProductDTO](reg)
	require.NoError(t, err)
	require.NoError(t, mapper.IncludeBase[Entity, EntityDTO](rule))

	got := project[Product, ProductDTO](t, reg, nil, Product{Entity: Entity{ID: 4, Version: 9}, Title: "lamp"})
	assert.Equal(t, ProductDTO{EntityDTO: EntityDTO{ID: 4, Revision: 9}, Title: "lamp"}, got)
}

func TestIncludeBaseOverriddenByCustomMap(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t)
	_, err := mapper.CreateMap[Entity, EntityDTO](reg, expr.Func[Entity]("x", func(x *expr.Param) expr.Node {
		return expr.NewOf[EntityDTO](expr.B("Revision", expr.Field(x, "Version")))
	}))
	require.NoError(t, err)

	custom := expr.Func[Product]("x", func(x *expr.Param) expr.Node {
		return expr.NewOf[ProductDTO](expr.B("Revision", expr.Constant(-1)))
	})

	rule, err := mapper.CreateMap[Product, ProductDTO](reg, custom)
	require.NoError(t, err)
	require.NoError(t, mapper.IncludeBase[Entity, EntityDTO](rule))

	got := project[Product, ProductDTO](t, reg, nil, Product{Entity: Entity{ID: 1, Version: 2}})
	assert.Equal(t, 1, got.ID)
	assert.Equal(t, -1, got.Revision)
}

func TestIncludeBaseValidation(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t)
	rule, err := mapper.CreateMap[Product, ProductDTO](reg)
	require.NoError(t, err)

	// base rule not registered yet
	assert.ErrorIs(t, mapper.IncludeBase[Entity, EntityDTO](rule), mapper.ErrInvalidBase)

	_, err = mapper.CreateMap[Entity, EntityDTO](reg)
	require.NoError(t, err)

	assert.ErrorIs(t, mapper.IncludeBase[Person, EntityDTO](rule), mapper.ErrInvalidBase)
	assert.ErrorIs(t, mapper.IncludeBase[Entity, PersonDTO](rule), mapper.ErrInvalidBase)
	assert.ErrorIs(t, mapper.IncludeBase[Product, ProductDTO](rule), mapper.ErrInvalidBase)
	assert.NoError(t, mapper.IncludeBase[Entity, EntityDTO](rule))
}

func TestRuntimeMapVariesByContext(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t)
	rule, err := mapper.CreateMap[Person, PersonDTO](reg)
	require.NoError(t, err)

	rule.CreateRuntimeMap(func(ctx *mapper.Context) (*expr.Lambda, error) {
		if role, _ := mapper.Value[Role](ctx); role != "admin" {
			return nil, nil
		}

		return expr.Func[Person]("x", func(x *expr.Param) expr.Node {
			return expr.NewOf[PersonDTO](expr.B("Name", expr.Upper(expr.Field(x, "Name"))))
		}), nil
	})
	rule.IgnoreRuntimeMembers(func(ctx *mapper.Context) []string {
		if role, _ := mapper.Value[Role](ctx); role == "admin" {
			return nil
		}

		return []string{"Age"}
	})

	admin, err := mapper.GetMap[Person, PersonDTO](reg, mapper.NewContext(Role("admin")))
	require.NoError(t, err)

	guest, err := mapper.GetMap[Person, PersonDTO](reg, mapper.NewContext(Role("guest")))
	require.NoError(t, err)

	assert.Equal(t, "p => mapper_test.PersonDTO{Age: p.Age, Name: upper(p.Name)}", admin.String())
	assert.Equal(t, "p => mapper_test.PersonDTO{Name: p.Name}", guest.String())

	src := Person{Name: "ada", Age: 36}
	assert.Equal(t, PersonDTO{Name: "ADA", Age: 36}, project[Person, PersonDTO](t, reg, mapper.NewContext(Role("admin")), src))
	assert.Equal(t, PersonDTO{Name: "ada"}, project[Person, PersonDTO](t, reg, nil, src))
}

func TestExpansionLimit(t *testing.T) {
	t.Parallel()

	cfg := mapper.DefaultConfig()
	cfg.MaxExpansionPasses = 5
	reg := mapper.NewRegistry(cfg)

	_, err := mapper.CreateMap[Node, NodeDTO](reg)
	require.NoError(t, err)

	_, err = mapper.GetMap[Node, NodeDTO](reg, nil)
	require.ErrorIs(t, err, mapper.ErrExpansionLimit)
	assert.Contains(t, err.Error(), "mapper_test.Node -> mapper_test.NodeDTO")

	// the unexpanded projection is still available for inspection
	l, err := reg.Unexpanded(reflect.TypeFor[Node](), reflect.TypeFor[NodeDTO](), nil)
	require.NoError(t, err)
	assert.True(t, expr.HasRefs(l))
}

func TestStrictBindings(t *testing.T) {
	t.Parallel()

	lenient := newRegistry(t)
	rule, err := mapper.CreateMap[Wallet, WalletDTO](lenient)
	require.NoError(t, err)

	got := project[Wallet, WalletDTO](t, lenient, nil, Wallet{Owner: "o", Balance: map[string]int{"a": 1}})
	assert.Equal(t, WalletDTO{Owner: "o"}, got)

	unbound := rule.Diagnostics().WithCode(diagnostic.CodeMemberUnbound)
	require.Len(t, unbound, 1)
	assert.Equal(t, "Balance", unbound[0].Member)

	cfg := mapper.DefaultConfig()
	cfg.StrictBindings = true
	strict := mapper.NewRegistry(cfg)

	rule, err = mapper.CreateMap[Wallet, WalletDTO](strict)
	require.NoError(t, err)

	_, err = mapper.GetMap[Wallet, WalletDTO](strict, nil)
	require.ErrorIs(t, err, mapper.ErrUnboundMember)

	// ignoring the member satisfies strict mode
	require.NoError(t, rule.IgnoreMembers("Balance"))
	_, err = mapper.GetMap[Wallet, WalletDTO](strict, nil)
	assert.NoError(t, err)
}

func TestKeysAreInterned(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t)
	src, dst := reflect.TypeFor[Person](), reflect.TypeFor[PersonDTO]()

	k := reg.Key(src, dst)
	assert.Same(t, k, reg.Key(src, dst))
	assert.NotSame(t, k, reg.Key(dst, src))
	assert.Equal(t, k.Hash(), newRegistry(t).Key(src, dst).Hash())
	assert.Equal(t, "mapper_test.Person -> mapper_test.PersonDTO", k.String())
}

func TestFindAndReset(t *testing.T) {
	reg := newRegistry(t)
	_, err := mapper.CreateMap[Person, PersonDTO](reg)
	require.NoError(t, err)

	m, ok := reg.Find("mapper_test.Person", "exprmap/mapper_test.PersonDTO")
	require.True(t, ok)
	assert.Equal(t, "mapper_test.Person -> mapper_test.PersonDTO", m.String())

	reg.Reset()

	_, ok = reg.Find("mapper_test.Person", "mapper_test.PersonDTO")
	assert.False(t, ok)
	assert.Zero(t, reg.Count())

	_, err = mapper.CreateMap[Person, PersonDTO](reg)
	assert.NoError(t, err)
}

func TestContextValues(t *testing.T) {
	t.Parallel()

	var empty *mapper.Context
	_, ok := mapper.Value[Role](empty)
	assert.False(t, ok)

	ctx := mapper.NewContext(Role("admin"), 42)
	role, ok := mapper.Value[Role](ctx)
	assert.True(t, ok)
	assert.Equal(t, Role("admin"), role)

	n, _ := mapper.Value[int](ctx)
	assert.Equal(t, 42, n)

	var s fmtStringer = Role("x")
	withIface := mapper.With(ctx, s)
	got, ok := mapper.Value[fmtStringer](withIface)
	assert.True(t, ok)
	assert.Equal(t, "x", got.String())
	assert.Equal(t, 2, ctx.Len(), "With must not modify the original")
}

type fmtStringer interface{ String() string }

func (r Role) String() string { return string(r) }

func ptr[T any](v T) *T { return &v }
