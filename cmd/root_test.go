package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the CLI with fresh flag values and a fresh viper instance.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	v = viper.New()
	reset := func(prefix string, fs *pflag.FlagSet) {
		fs.VisitAll(func(f *pflag.Flag) {
			require.NoError(t, f.Value.Set(f.DefValue))
			f.Changed = false
		})
		bindFlags(prefix, fs)
	}
	reset("", rootCmd.PersistentFlags())
	for _, c := range []*cobra.Command{gridCmd, mixedCmd} {
		reset(c.Name(), c.Flags())
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append([]string{"--log", "warn"}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

// staticGrid is a four node line with two burst packets.
func staticGrid(dir string) []string {
	return []string{"grid", "--numNodes=4", "--sourceNode=3", "--distance=100", "--mobility=grid",
		"--traffic=burst", "--numPackets=2", "--stopTime=12", "--tracing=false", "--runId=cli", "--out-dir", dir}
}

func TestGrid_RunsAndReports(t *testing.T) {
	// GIVEN a static grid on the command line
	dir := t.TempDir()

	// WHEN the grid command runs
	out, err := execute(t, staticGrid(dir)...)

	// THEN the summary and the flow table are printed and the XML files written
	require.NoError(t, err)
	assert.Contains(t, out, "Run cli:")
	assert.Contains(t, out, "Sent 2 packets, sink received 2 packets (2000 bytes)")
	assert.Contains(t, out, "Flow 1 (10.1.1.4:49153 -> 10.1.1.1:80 udp)")
	assert.FileExists(t, filepath.Join(dir, "taller1.xml"))
	assert.FileExists(t, filepath.Join(dir, "third.xml"))
}

func TestGrid_InvalidFlagValueIsError(t *testing.T) {
	_, err := execute(t, "grid", "--numNodes=1", "--out-dir", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "numNodes must be at least 2")
}

func TestGrid_EnvironmentOverridesDefault(t *testing.T) {
	// GIVEN a sink node set only through the environment
	t.Setenv("NETSIM_GRID_SINKNODE", "99")

	// WHEN the grid command runs without --sinkNode
	_, err := execute(t, "grid", "--out-dir", t.TempDir())

	// THEN the environment value is validated
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sinkNode 99 out of range")
}

func TestGrid_FlagOverridesConfigFile(t *testing.T) {
	// GIVEN a config file with an invalid trace level and a valid prefix
	dir := t.TempDir()
	path := filepath.Join(dir, "netsim.yaml")
	require.NoError(t, os.WriteFile(path, []byte("grid:\n  traceLevel: frames\n  prefix: fromfile\n"), 0o644))

	// WHEN the file is used alone
	_, err := execute(t, "grid", "--config", path, "--out-dir", dir)

	// THEN its values reach the scenario
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown trace level "frames"`)

	// WHEN a flag overrides the bad value
	args := append(staticGrid(dir), "--config", path, "--traceLevel=packets")
	out, err := execute(t, args...)

	// THEN the run succeeds and keeps the file's other values
	require.NoError(t, err)
	assert.Contains(t, out, "Trace: ")
	assert.FileExists(t, filepath.Join(dir, "fromfile.xml"))
}

func TestGrid_InvalidRandomVariableIsError(t *testing.T) {
	_, err := execute(t, "grid", "--offTime=exponential:0", "--out-dir", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "offTime: exponential: mean must be > 0")
}

func TestGrid_ConfigFileCarriesRandomVariables(t *testing.T) {
	// GIVEN a config file with a constant two second off period
	dir := t.TempDir()
	path := filepath.Join(dir, "netsim.yaml")
	cfg := "grid:\n  offTime: \"ns3::ConstantRandomVariable[Constant=2]\"\n  onTime: \"0\"\n"
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))

	// WHEN an OnOff grid runs with it
	out, err := execute(t, "grid", "--numNodes=4", "--sourceNode=3", "--distance=100", "--mobility=grid",
		"--stopTime=12", "--tracing=false", "--config", path, "--out-dir", dir)

	// THEN the source sends one packet every two seconds between 2 s and 10 s
	require.NoError(t, err)
	assert.Contains(t, out, "Sent 3 packets,")
}

func TestMixed_InvalidLayoutIsError(t *testing.T) {
	_, err := execute(t, "mixed", "--layout=diagonal", "--out-dir", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown grid layout "diagonal"`)
}

func TestMixed_ShortStopTimeIsError(t *testing.T) {
	_, err := execute(t, "mixed", "--stopTime=9", "--out-dir", t.TempDir())
	require.Error(t, err)
	assert.EqualError(t, err, "Use a simulation stop time >= 10 seconds")
}

func TestMixed_InvalidLogLevel(t *testing.T) {
	_, err := execute(t, "mixed", "--log", "loud", "--out-dir", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}
