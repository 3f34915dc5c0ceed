package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"exprmap/mapper"
	"exprmap/profile"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	cmd := NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return stdout.String(), stderr.String(), err
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()

	for _, name := range []string{"pairs", "explain", "run"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
}

func TestInvalidFormat(t *testing.T) {
	_, _, err := execute(t, "pairs", "--format", "json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "json"`)
}

func TestPairs(t *testing.T) {
	out, _, err := execute(t, "pairs")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"catalog.Order -> catalog.OrderDTO  (table orders)",
		"catalog.Person -> catalog.PersonDTO  (table people)",
	}, strings.Split(strings.TrimSpace(out), "\n"))

	out, _, err = execute(t, "pairs", "--format", "yaml")
	require.NoError(t, err)

	var infos []PairInfo
	require.NoError(t, yaml.Unmarshal([]byte(out), &infos))
	require.Len(t, infos, 2)
	assert.Equal(t, "people", infos[1].Table)
}

func TestExplain(t *testing.T) {
	out, _, err := execute(t, "explain", "catalog.Person", "catalog.PersonDTO", "--role", "admin")
	require.NoError(t, err)

	assert.Contains(t, out, "pair:       catalog.Person -> catalog.PersonDTO")
	assert.Contains(t, out, `Email: (p.Email ?? "")`)
	assert.Contains(t, out, "Salary: p.Salary")
	assert.Contains(t, out, `COALESCE("Email", ?) AS "Email"`)
	assert.Contains(t, out, `FROM "people"`)

	out, _, err = execute(t, "explain", "catalog.Person", "catalog.PersonDTO")
	require.NoError(t, err)
	assert.NotContains(t, out, "Salary")
	assert.Contains(t, out, `Email: ""`)

	out, _, err = execute(t, "explain", "catalog.Order", "catalog.OrderDTO", "--format", "yaml")
	require.NoError(t, err)

	var ex Explanation
	require.NoError(t, yaml.Unmarshal([]byte(out), &ex))
	assert.Contains(t, ex.Unexpanded, "map[catalog.Person -> catalog.PersonDTO](o.Customer)")
	assert.NotContains(t, ex.Expanded, "map[")
	assert.Contains(t, ex.SQL, `("Amount" - "Discount") AS "Total"`)
	assert.Contains(t, ex.SQL, `"Customer_Org_Name" AS "Customer_OrgName"`)

	_, _, err = execute(t, "explain", "catalog.Person", "catalog.OrderDTO")
	require.ErrorIs(t, err, mapper.ErrMapNotFound)

	_, _, err = execute(t, "explain", "catalog.Person", "catalog.PersonDto")
	require.ErrorIs(t, err, mapper.ErrMapNotFound)
	assert.Contains(t, err.Error(), `did you mean "catalog.Person -> catalog.PersonDTO"?`)
}

func TestRun(t *testing.T) {
	out, _, err := execute(t, "run", "catalog.Person", "catalog.PersonDTO")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "{ID:1 Name:Ada Email: Age:36 Salary:0 OrgName:Acme OrgCity:Oslo}", lines[0])

	dbPath := filepath.Join(t.TempDir(), "catalog.db")

	out, stderr, err := execute(t, "run", "catalog.Order", "catalog.OrderDTO",
		"--db", dbPath, "--role", "admin", "--format", "yaml", "--verbose")
	require.NoError(t, err)
	assert.Contains(t, out, "total: 280")
	assert.Contains(t, out, "salary: 150")
	assert.Contains(t, stderr, "sqlite query")
	assert.Contains(t, stderr, "resolution=")
}

func TestProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	data, err := profile.Marshal(&profile.File{
		Version: profile.Version,
		Maps: []profile.Map{
			{Source: "catalog.Person", Target: "catalog.PersonDTO", Ignore: profile.Names{"Email", "Age"}},
		},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	out, _, err := execute(t, "pairs", "--profile", path)
	require.NoError(t, err)
	assert.Contains(t, out, "  ignored: Email\n  ignored: Age\n")

	out, _, err = execute(t, "run", "catalog.Person", "catalog.PersonDTO", "--profile", path, "--role", "admin")
	require.NoError(t, err)
	assert.Contains(t, out, "{ID:1 Name:Ada Email: Age:0 Salary:120 OrgName:Acme OrgCity:Oslo}")

	_, _, err = execute(t, "pairs", "--profile", filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
