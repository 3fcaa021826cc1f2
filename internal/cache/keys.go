package cache

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/frotaviva/trip-compliance/internal/core/model"
)

// Namespaces keep import and list entries apart; their payload shapes
// differ and they are flushed independently.
const (
	NamespaceImport = "import"
	NamespaceList   = "list"
)

// ImportKey derives the canonical cache key for an import request.
// Field order is fixed, so semantically identical requests collide.
func ImportKey(q model.ImportQuery) string {
	canon := strings.Join([]string{
		"data=" + q.Date,
		"idservico=" + q.ServiceID,
		"idempresa=" + q.CompanyID,
		"linha=" + q.Line,
		"prefprev=" + q.ScheduledPrefix,
		"prefreal=" + q.OperatedPrefix,
		"statusini=" + q.StatusStart,
		"statusfim=" + q.StatusEnd,
	}, "|")
	return key(NamespaceImport, canon)
}

// ListKey derives the canonical cache key for a list request, filters
// and pagination included.
func ListKey(q model.ListQuery) string {
	f := q.Filters
	canon := strings.Join([]string{
		"motorista=" + f.Driver,
		"linha=" + f.Line,
		"sentido=" + f.Direction,
		"setor=" + f.Sector,
		"origem=" + f.Origin,
		"destino=" + f.Destination,
		"prefprev=" + f.ScheduledPrefix,
		"prefreal=" + f.OperatedPrefix,
		"page=" + strconv.Itoa(q.Page),
		"limit=" + strconv.Itoa(q.Limit),
	}, "|")
	return key(NamespaceList, canon)
}

func key(namespace, canon string) string {
	safe := sanitizeForKey(canon)

	const maxCanonLen = 160
	if len(safe) > maxCanonLen {
		safe = safe[:maxCanonLen]
	}

	sum := xxhash.Sum64String(canon)
	return fmt.Sprintf("%s:%s:h=%016x", namespace, safe, sum)
}

// keeps keys readable in redis: whitespace becomes '_', anything outside
// the safe set becomes '-', and runs collapse
func sanitizeForKey(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))

	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
			out = '_'
		case isAlphaNum(r) || r == '|' || r == '_' || r == '-' || r == '=':
			out = r
		default:
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}
