// Package vcf parses variant-call files (VCFv4.1/4.2) into domain.Variant
// records. The parser consumes an already-opened byte stream; upload size
// and file-type validation are the caller's responsibility.
package vcf

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pharmaguard/pgx-server/internal/domain"
)

// ParseResult carries the parsed records plus per-parse bookkeeping used to
// feed the request's quality metrics.
type ParseResult struct {
	Variants []domain.Variant
	Total    int // usable records
	Skipped  int // structurally malformed records skipped
}

// Parser reads VCF text into variant records.
type Parser struct {
	logger *logrus.Logger
}

// NewParser creates a new VCF parser.
func NewParser(logger *logrus.Logger) *Parser {
	return &Parser{logger: logger}
}

// Parse reads the stream and returns the ordered variant records.
//
// The mandatory "##fileformat=VCF" signature must be the first line, and a
// "#CHROM" header must precede data records; either missing is a
// domain.FormatError. A malformed individual record (wrong field count,
// non-numeric position) is skipped and counted, not fatal, unless zero
// usable records remain, in which case the whole parse fails.
func (p *Parser) Parse(r io.Reader) (*ParseResult, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	result := &ParseResult{}
	sampleCol := -1
	sawFileformat := false
	sawHeader := false
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")

		if lineNo == 1 {
			if !strings.HasPrefix(line, "##fileformat=VCF") {
				return nil, &domain.FormatError{Reason: "missing ##fileformat=VCF signature", Line: 1}
			}
			sawFileformat = true
			continue
		}

		if strings.HasPrefix(line, "##") {
			continue
		}

		if strings.HasPrefix(line, "#CHROM") {
			cols := strings.Split(strings.TrimPrefix(line, "#"), "\t")
			sampleCol = 9
			for i, c := range cols {
				if c == "FORMAT" {
					sampleCol = i + 1
					break
				}
			}
			sawHeader = true
			continue
		}

		if line == "" {
			continue
		}
		if !sawHeader {
			return nil, &domain.FormatError{Reason: "data record before #CHROM header", Line: lineNo}
		}

		v, ok := p.parseRecord(line, sampleCol)
		if !ok {
			result.Skipped++
			p.logger.WithFields(logrus.Fields{
				"line": lineNo,
			}).Debug("Skipping malformed VCF record")
			continue
		}
		result.Variants = append(result.Variants, v)
		result.Total++
	}

	if err := scanner.Err(); err != nil {
		return nil, domain.NewFormatError("reading variant stream: " + err.Error())
	}
	if !sawFileformat || !sawHeader {
		return nil, domain.NewFormatError("missing VCF header")
	}
	if result.Total == 0 {
		if result.Skipped > 0 {
			return nil, domain.NewFormatError("all variant records were malformed")
		}
		return nil, domain.NewFormatError("file contains no variant records")
	}

	p.logger.WithFields(logrus.Fields{
		"variants": result.Total,
		"skipped":  result.Skipped,
	}).Info("VCF parse complete")

	return result, nil
}

// parseRecord parses one data line. Returns ok=false for structurally
// malformed records.
func (p *Parser) parseRecord(line string, sampleCol int) (domain.Variant, bool) {
	cols := strings.Split(line, "\t")
	if len(cols) < 8 {
		return domain.Variant{}, false
	}

	pos, err := strconv.ParseInt(cols[1], 10, 64)
	if err != nil || pos <= 0 {
		return domain.Variant{}, false
	}

	ref := cols[3]
	altField := cols[4]
	if ref == "" || altField == "" {
		return domain.Variant{}, false
	}
	// Multi-allelic sites collapse to the primary ALT.
	alt := altField
	if idx := strings.IndexByte(altField, ','); idx >= 0 {
		alt = altField[:idx]
	}

	gtRaw := "."
	if len(cols) > 8 && sampleCol > 0 && len(cols) > sampleCol {
		fmtFields := strings.Split(cols[8], ":")
		sampleFields := strings.Split(cols[sampleCol], ":")
		for i, f := range fmtFields {
			if f == "GT" && i < len(sampleFields) {
				gtRaw = sampleFields[i]
				break
			}
		}
	}

	a1, a2, phased := parseGenotype(gtRaw)

	return domain.Variant{
		Chromosome:  cols[0],
		Position:    pos,
		Reference:   ref,
		Alternate:   alt,
		VariantID:   cols[2],
		GenotypeRaw: gtRaw,
		Phased:      phased,
		Allele1:     a1,
		Allele2:     a2,
		Zygosity:    zygosity(a1, a2),
	}, true
}

// parseGenotype splits a raw GT string like "0|1" or "1/0" into allele
// indexes; "." or absent alleles become -1.
func parseGenotype(gt string) (a1, a2 int, phased bool) {
	sep := "/"
	if strings.Contains(gt, "|") {
		sep = "|"
		phased = true
	}
	parts := strings.Split(gt, sep)

	toInt := func(s string) int {
		if s == "" || s == "." {
			return -1
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return -1
		}
		return n
	}

	a1, a2 = -1, -1
	if len(parts) > 0 {
		a1 = toInt(parts[0])
	}
	if len(parts) > 1 {
		a2 = toInt(parts[1])
	}
	return a1, a2, phased
}

func zygosity(a1, a2 int) domain.Zygosity {
	switch {
	case a1 == -1 || a2 == -1:
		return domain.MissingCall
	case a1 == 0 && a2 == 0:
		return domain.HomozygousRef
	case a1 == a2:
		return domain.HomozygousAlt
	default:
		return domain.Heterozygous
	}
}
