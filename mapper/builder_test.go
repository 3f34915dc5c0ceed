package mapper_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exprmap/expr"
	"exprmap/mapper"
)

type Address struct {
	City string
	Zip  string
}

type Contact struct {
	Name string
	Home Address
}

func TestBuilderExtend(t *testing.T) {
	t.Parallel()

	dest := reflect.TypeFor[Contact]()
	p := expr.P[Contact]("c")
	q := expr.P[Contact]("x")

	base := mapper.NewBuilder(p, dest)
	base.Bind("Name", expr.Field(p, "Name"))
	base.Bind("Home", expr.NewOf[Address](
		expr.B("City", expr.FieldPath(p, "Home", "City")),
		expr.B("Zip", expr.FieldPath(p, "Home", "Zip")),
	))

	override := mapper.NewBuilder(q, dest)
	override.Bind("Name", expr.Upper(expr.Field(q, "Name")))
	override.Bind("Home", expr.NewOf[Address](expr.B("City", expr.Constant("Oslo"))))

	got := base.Clone().Extend(override).Lambda()

	assert.Equal(t,
		`c => mapper_test.Contact{Home: mapper_test.Address{City: "Oslo", Zip: c.Home.Zip}, Name: upper(c.Name)}`,
		expr.Format(got))

	// the receiver of Clone is untouched
	name, ok := base.Lookup("Name")
	require.True(t, ok)
	assert.Equal(t, "c.Name", expr.Format(name))
}

func TestBuilderRemoveAndRebase(t *testing.T) {
	t.Parallel()

	dest := reflect.TypeFor[PersonDTO]()
	p := expr.P[Person]("p")

	b := mapper.NewBuilder(p, dest)
	b.Bind("Name", expr.Field(p, "Name"))
	b.Bind("Age", expr.Field(p, "Age"))
	b.Remove("Age", "Missing")

	assert.Equal(t, []string{"Name"}, b.Names())
	assert.Equal(t, 1, b.Len())

	rebased := b.Rebase(expr.P[Person]("who"))
	assert.Equal(t, "who => mapper_test.PersonDTO{Name: who.Name}", expr.Format(rebased.Lambda()))

	assert.Panics(t, func() { b.Rebase(expr.P[Skill]("s")) })
}

func TestBuilderCast(t *testing.T) {
	t.Parallel()

	e := expr.P[Entity]("e")
	base := mapper.NewBuilder(e, reflect.TypeFor[EntityDTO]())
	base.Bind("ID", expr.Field(e, "ID"))
	base.Bind("Revision", expr.Field(e, "Version"))

	p := expr.P[Product]("p")
	embed, ok := reflect.TypeFor[ProductDTO]().FieldByName("EntityDTO")
	require.True(t, ok)

	cast := base.Cast(p, expr.Field(p, "Entity"), reflect.TypeFor[ProductDTO](), embed.Index)

	assert.Equal(t,
		"p => mapper_test.ProductDTO{ID: p.Entity.ID, Revision: p.Entity.Version}",
		expr.Format(cast.Lambda()))
}

func TestBuilderFrom(t *testing.T) {
	t.Parallel()

	l := expr.Func[Person]("p", func(p *expr.Param) expr.Node {
		return expr.NewOf[PersonDTO](expr.B("Name", expr.Field(p, "Name")))
	})

	b, err := mapper.BuilderFrom(l, reflect.TypeFor[PersonDTO]())
	require.NoError(t, err)
	assert.Same(t, l.Param, b.Param())
	assert.Equal(t, reflect.TypeFor[PersonDTO](), b.Dest())

	_, err = mapper.BuilderFrom(l, reflect.TypeFor[SkillDTO]())
	require.ErrorIs(t, err, mapper.ErrInvalidCustomMap)

	notInit := expr.Func[Person]("p", func(p *expr.Param) expr.Node {
		return expr.Field(p, "Name")
	})
	_, err = mapper.BuilderFrom(notInit, reflect.TypeFor[PersonDTO]())
	require.ErrorIs(t, err, mapper.ErrInvalidCustomMap)
}
