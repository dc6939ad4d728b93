package accounts

import (
	"fmt"
	"regexp"

	"github.com/shunichi-ikebuchi/ledger-fx/pkg/money"
)

var (
	forceConvertTag = regexp.MustCompile(`(?i)<CONVERT>`)
	noConvertTag    = regexp.MustCompile(`(?i)<NO[\s-]*CONVERT>`)
	currencyTag     = regexp.MustCompile(`(?i)<([[:alpha:]]{3})>`)
	differenceTag   = regexp.MustCompile(`(?i)<([[:alpha:]]{3})[\s-]+DIFFERENCE>`)
)

// HasForceConvertTag reports whether s contains a <CONVERT> tag.
func HasForceConvertTag(s string) bool {
	return forceConvertTag.MatchString(s)
}

// HasNoConvertTag reports whether s contains a <NO CONVERT> tag, in any spelling
// the tag allows (<NO CONVERT>, <NO-CONVERT>, <NOCONVERT>).
func HasNoConvertTag(s string) bool {
	return noConvertTag.MatchString(s)
}

// tagCurrency extracts the currency of at most one tag from name or note.
// It returns "" when neither field carries the tag.
func tagCurrency(re *regexp.Regexp, name string, note *string) (money.CurrencyCode, error) {
	nameMatches := re.FindAllStringSubmatch(name, -1)
	var noteMatches [][]string
	if note != nil {
		noteMatches = re.FindAllStringSubmatch(*note, -1)
	}

	var match []string
	switch {
	case len(nameMatches) > 1:
		return "", fmt.Errorf("name may not have multiple tags")
	case len(noteMatches) > 1 && len(nameMatches) == 0:
		return "", fmt.Errorf("note may not have multiple tags")
	case len(nameMatches) == 1 && len(noteMatches) > 0:
		return "", fmt.Errorf("name and note may not both have tags")
	case len(nameMatches) == 1:
		match = nameMatches[0]
	case len(noteMatches) == 1:
		match = noteMatches[0]
	default:
		return "", nil
	}

	code, err := money.ParseCurrencyCode(match[1])
	if err != nil {
		// The pattern only captures three letters.
		panic(err)
	}
	return code, nil
}

func matchesNameOrNote(re *regexp.Regexp, name string, note *string) bool {
	if re.MatchString(name) {
		return true
	}
	return note != nil && re.MatchString(*note)
}
