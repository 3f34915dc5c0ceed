package mapper_test

import (
	"reflect"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"exprmap/expr"
	"exprmap/mapper"
)

func teamRegistry(t *testing.T) *mapper.Registry {
	t.Helper()

	reg := newRegistry(t)
	_, err := mapper.CreateMap[Team, TeamDTO](reg)
	require.NoError(t, err)
	_, err = mapper.CreateMap[Person, PersonDTO](reg)
	require.NoError(t, err)
	_, err = mapper.CreateMap[Skill, SkillDTO](reg)
	require.NoError(t, err)

	return reg
}

func TestProjectionGolden(t *testing.T) {
	reg := teamRegistry(t)
	src, dst := reflect.TypeFor[Team](), reflect.TypeFor[TeamDTO]()

	unexpanded, err := reg.Unexpanded(src, dst, nil)
	require.NoError(t, err)

	expanded, err := reg.GetMap(src, dst, nil)
	require.NoError(t, err)

	tests := []struct {
		name string
		node expr.Node
	}{
		{"team_unexpanded", unexpanded},
		{"team_expanded", expanded},
		{"team_inlined", expr.InlineLambda(expanded)},
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g.Assert(t, tt.name, []byte(expr.Format(tt.node)+"\n"))
		})
	}
}
