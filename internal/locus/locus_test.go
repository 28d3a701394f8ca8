package locus

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vcf2loc/internal/vcf"
)

func mustParse(t *testing.T, text string) *vcf.Record {
	t.Helper()
	rec, err := vcf.Parse(vcf.Line{Number: 1, Text: text})
	require.NoError(t, err)
	return rec
}

func TestFromVariant_ScenarioA(t *testing.T) {
	rec := mustParse(t, "chr1\t100\trs1\tA\tC,G\t.\tPASS\tAF=0.1,0.2")

	lr, mismatched, err := FromVariant(rec, vcf.MismatchReject)
	require.NoError(t, err)
	assert.False(t, mismatched)

	assert.Equal(t, "rs1 AUTOSOME 2 chr1 0.00\nC 0.1\nG 0.2\n", Format(lr))
}

func TestFromVariant_SynthesizedID(t *testing.T) {
	rec := mustParse(t, "2\t45895\t.\tT\tC\t.\tPASS\tAF=0.5")

	lr, _, err := FromVariant(rec, vcf.MismatchReject)
	require.NoError(t, err)
	assert.Equal(t, "2_45895 AUTOSOME 1 2 0.00", lr.Header())
}

func TestFromVariant_FrequencyPassthrough(t *testing.T) {
	// Out-of-range and oddly formatted values are not reformatted.
	rec := mustParse(t, "1\t5\trs9\tA\tC,G\t.\tPASS\tAF=1.5,1e-04")

	lr, _, err := FromVariant(rec, vcf.MismatchReject)
	require.NoError(t, err)
	require.Len(t, lr.Alleles, 2)
	assert.Equal(t, "1.5", lr.Alleles[0].Frequency)
	assert.Equal(t, "1e-04", lr.Alleles[1].Frequency)
}

func TestFromVariant_ScenarioC(t *testing.T) {
	rec := mustParse(t, "chr1\t100\trs1\tA\tC,G,T\t.\tPASS\tAF=0.1,0.2")

	lr, mismatched, err := FromVariant(rec, vcf.MismatchReject)
	require.Error(t, err)
	assert.Nil(t, lr)
	assert.True(t, mismatched)
	assert.True(t, errors.Is(err, vcf.ErrFieldCountMismatch))

	lr, mismatched, err = FromVariant(rec, vcf.MismatchTruncate)
	require.NoError(t, err)
	assert.True(t, mismatched)
	assert.Equal(t, "rs1 AUTOSOME 2 chr1 0.00\nC 0.1\nG 0.2\n", Format(lr))
}

func TestFromVariant_AlleleCountMatchesLines(t *testing.T) {
	lines := []string{
		"1\t1\ta\tA\tC\t.\tPASS\tAF=0.1",
		"1\t2\tb\tA\tC,G\t.\tPASS\tAF=0.1,0.2",
		"1\t3\tc\tA\tC,G,T\t.\tPASS\tAF=0.1,0.2,0.3",
		"1\t4\td\tA\t<STR5>,<STR6>,<STR7>,<STR8>\t.\tPASS\tAF=0.4,0.3,0.2,0.1",
	}

	for _, text := range lines {
		rec := mustParse(t, text)
		lr, _, err := FromVariant(rec, vcf.MismatchReject)
		require.NoError(t, err)

		block := strings.Split(strings.TrimSuffix(Format(lr), "\n"), "\n")
		header := strings.Fields(block[0])
		require.Len(t, header, 5)

		count, err := strconv.Atoi(header[2])
		require.NoError(t, err)
		assert.Equal(t, len(block)-1, count)
		assert.Equal(t, len(rec.Alt), count)
	}
}

func TestWriter_Concatenates(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	for _, text := range []string{
		"chr1\t100\trs1\tA\tC,G\t.\tPASS\tAF=0.1,0.2",
		"chr2\t200\trs2\tG\tT\t.\tPASS\tAF=0.9",
	} {
		lr, _, err := FromVariant(mustParse(t, text), vcf.MismatchReject)
		require.NoError(t, err)
		require.NoError(t, w.Write(lr))
	}

	assert.Empty(t, buf.String(), "output should be buffered until Flush")
	require.NoError(t, w.Flush())

	expected := "rs1 AUTOSOME 2 chr1 0.00\nC 0.1\nG 0.2\n" +
		"rs2 AUTOSOME 1 chr2 0.00\nT 0.9\n"
	assert.Equal(t, expected, buf.String())
}
