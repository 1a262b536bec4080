package scoring

import (
	"strings"

	"github.com/aiwot/reputation-engine/internal/wotevent"
	"github.com/aiwot/reputation-engine/internal/wottype"
)

// Category names a grouping that attestations can be filtered into.
type Category string

const (
	CategoryCommerce Category = "commerce"
	CategoryIdentity Category = "identity"
	CategoryCode     Category = "code"
	CategoryGeneral  Category = "general"
)

// NamedCategories returns every category recognised by CategoryScore/
// AllCategoryScores, in a stable order.
func NamedCategories() []Category {
	return []Category{CategoryCommerce, CategoryIdentity, CategoryCode, CategoryGeneral}
}

// matchesCategory reports whether att belongs to cat. A
// bare attestation-type name (e.g. "warning") is also a valid category,
// matching only attestations of that exact type.
func matchesCategory(att wotevent.Attestation, cat Category) bool {
	typ, typeOK := att.ParseType()

	switch cat {
	case CategoryGeneral:
		return true
	case CategoryCommerce:
		return typeOK && (typ == wottype.ServiceQuality || typ == wottype.WorkCompleted)
	case CategoryIdentity:
		return typeOK && typ == wottype.IdentityContinuity
	case CategoryCode:
		return typeOK && typ == wottype.ServiceQuality && strings.Contains(strings.ToLower(att.Content), "code")
	default:
		return typeOK && string(typ) == string(cat)
	}
}

// CategoryScore filters attestations to cat then scores the remainder.
func CategoryScore(attestations []wotevent.Attestation, zapTotals map[string]int64, cfg Config, resolveAttester ResolveAttesterFunc, cat Category) Result {
	var filtered []wotevent.Attestation
	for _, a := range attestations {
		if matchesCategory(a, cat) {
			filtered = append(filtered, a)
		}
	}
	return Score(filtered, zapTotals, cfg, resolveAttester)
}

// AllCategoryScores returns one Result per named category.
func AllCategoryScores(attestations []wotevent.Attestation, zapTotals map[string]int64, cfg Config, resolveAttester ResolveAttesterFunc) map[Category]Result {
	out := make(map[Category]Result, len(NamedCategories()))
	for _, cat := range NamedCategories() {
		out[cat] = CategoryScore(attestations, zapTotals, cfg, resolveAttester, cat)
	}
	return out
}
