package pileup

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnbundle(t *testing.T) {
	require.Equal(t, []string{"-a", "-b", "-c", "FOO"}, Unbundle([]string{"-abcFOO"}, ""))
	require.Equal(t, []string{"-g", "-u", "-Ob"}, Unbundle([]string{"-gu", "-Ob"}, "O"))
	require.Equal(t, []string{"-x"}, Unbundle([]string{"-x"}, ""))
	require.Equal(t, []string{"--regions", "foo.bed"}, Unbundle([]string{"--regions", "foo.bed"}, ""))
}

func TestNormalizeForbidsOutputFlag(t *testing.T) {
	_, err := Normalize([]string{"-o", "out.vcf"}, nil, false)
	require.Error(t, err)
	var pe *Error
	require.ErrorAs(t, err, &pe)
	require.Equal(t, ArgRejected, pe.Kind)
	require.Contains(t, pe.Message, "-o")
}

func TestNormalizeFormatDowngradeWithCaller(t *testing.T) {
	n, err := Normalize([]string{"-v"}, []string{"view", "-"}, true)
	require.NoError(t, err)
	require.Contains(t, n.PileupArgs, "-g")
	require.Contains(t, n.PileupArgs, "-u")
	require.NotContains(t, n.PileupArgs, "-v")
	require.NotEmpty(t, n.Note)
	require.Equal(t, VCF, n.Format) // bcftools' own default with no -O flag
}

func TestNormalizeRejectsGV(t *testing.T) {
	_, err := Normalize([]string{"-g", "-v"}, nil, false)
	require.Error(t, err)
}

func TestNormalizeRejectsGzippedVCF(t *testing.T) {
	_, err := Normalize(nil, []string{"-Oz"}, true)
	require.Error(t, err)
}

func TestNormalizeCallerFormatDetection(t *testing.T) {
	n, err := Normalize(nil, []string{"-Ov", "-Ob"}, true)
	require.NoError(t, err)
	require.Equal(t, BCF, n.Format) // last -O flag wins
}

func TestNormalizeNoCallerFormat(t *testing.T) {
	n, err := Normalize([]string{"-g", "-u"}, nil, false)
	require.NoError(t, err)
	require.Equal(t, UncompressedBCF, n.Format)

	n, err = Normalize([]string{"-g"}, nil, false)
	require.NoError(t, err)
	require.Equal(t, BCF, n.Format)

	n, err = Normalize([]string{"-v"}, nil, false)
	require.NoError(t, err)
	require.Equal(t, VCF, n.Format)

	n, err = Normalize(nil, nil, false)
	require.NoError(t, err)
	require.Equal(t, Pileup, n.Format)
}

func TestNormalizeIdempotent(t *testing.T) {
	n1, err := Normalize([]string{"-gu"}, []string{"view", "-Ob"}, true)
	require.NoError(t, err)
	n2, err := Normalize(n1.PileupArgs, n1.CallerArgs, n1.HasCaller)
	require.NoError(t, err)
	require.Equal(t, n1.PileupArgs, n2.PileupArgs)
	require.Equal(t, n1.CallerArgs, n2.CallerArgs)
	require.Equal(t, n1.Format, n2.Format)
}

func TestBuildSkipsHeaderStripForFirstChunk(t *testing.T) {
	n, err := Normalize([]string{"-v"}, nil, false)
	require.NoError(t, err)
	cmd1, err := n.Build("samtools", "", "/tmp/1", 1, "sambamba-pileup")
	require.NoError(t, err)
	require.NotContains(t, cmd1, "strip-bcf-header")

	cmd2, err := n.Build("samtools", "", "/tmp/2", 2, "sambamba-pileup")
	require.NoError(t, err)
	require.Contains(t, cmd2, "strip-bcf-header")
}
