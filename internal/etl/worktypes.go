package etl

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// workTypeVocabulary standardizes museum work-type labels to English singular
// form. Keys are lowercased source labels; Danish terms come from SMK, the
// rest are already English.
var workTypeVocabulary = map[string]string{
	// SMK (Danish)
	"tegning":             "drawing",
	"maleri":              "painting",
	"gouache":             "gouache",
	"akvarel":             "watercolor",
	"buste":               "bust",
	"akvatinte":           "aquatint",
	"altertavle (maleri)": "altarpiece",
	"grafik":              "print",

	// English labels map to themselves or their singular category.
	"painting":              "painting",
	"paintings":             "painting",
	"drawing":               "drawing",
	"drawings":              "drawing",
	"print":                 "print",
	"prints":                "print",
	"watercolor":            "watercolor",
	"pastel":                "pastel",
	"pastels":               "pastel",
	"miniature":             "miniature",
	"miniatures":            "miniature",
	"miniature painting":    "miniature painting",
	"oil sketch on paper":   "oil sketch on paper",
	"oil sketches on paper": "oil sketch on paper",
	"bust":                  "bust",
	"altarpiece":            "altarpiece",
	"aquatint":              "aquatint",
	"design":                "design",
}

// searchableWorkTypes is the fixed set of categories exposed as search
// filters. A transformed record must project onto at least one of these to
// be stored.
var searchableWorkTypes = map[string]bool{
	"painting":   true,
	"drawing":    true,
	"print":      true,
	"watercolor": true,
	"pastel":     true,
	"gouache":    true,
	"aquatint":   true,
	"miniature":  true,
	"bust":       true,
	"altarpiece": true,
	"design":     true,
}

// SearchableWorkTypes projects raw work-type labels onto the searchable
// category set. A standardized label contributes both itself (when it is a
// category) and any category it contains as a substring, so "miniature
// painting" yields both "miniature" and "painting". The result is sorted and
// empty when nothing projects.
func SearchableWorkTypes(workTypes []string) []string {
	found := make(map[string]bool)
	for _, wt := range workTypes {
		standardized, ok := workTypeVocabulary[strings.ToLower(strings.TrimSpace(wt))]
		if !ok {
			continue
		}
		if searchableWorkTypes[standardized] {
			found[standardized] = true
		}
		for category := range searchableWorkTypes {
			if strings.Contains(standardized, category) {
				found[category] = true
			}
		}
	}

	result := make([]string, 0, len(found))
	for category := range found {
		result = append(result, category)
	}
	sort.Strings(result)
	return result
}

var yearPattern = regexp.MustCompile(`\d{4}`)

// YearFromString extracts a year from loosely formatted date strings like
// "1650-01-01", "ca. 1650", or "1650". Returns nil when no four-digit year
// is present.
func YearFromString(s string) *int {
	match := yearPattern.FindString(s)
	if match == "" {
		return nil
	}
	year, err := strconv.Atoi(match)
	if err != nil {
		return nil
	}
	return &year
}

var yearRangePattern = regexp.MustCompile(`\d{3,4}`)

// ProductionYears extracts a (start, end) year pair from a free-form creation
// date string, taking the minimum and maximum of all three-to-four digit
// numbers found. A single year yields an equal pair; no year yields nils.
func ProductionYears(s string) (start, end *int) {
	matches := yearRangePattern.FindAllString(s, -1)
	if len(matches) == 0 {
		return nil, nil
	}

	minYear, maxYear := 0, 0
	for i, m := range matches {
		year, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		if i == 0 {
			minYear, maxYear = year, year
			continue
		}
		if year < minYear {
			minYear = year
		}
		if year > maxYear {
			maxYear = year
		}
	}
	return &minYear, &maxYear
}
