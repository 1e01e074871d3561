package casefile

import (
	"regexp"
	"strings"
)

// Normalization is deterministic and performs no I/O.  Raw field values are
// canonicalized once per record (at index build) and once per query, so the
// comparators always see comparable forms.

var (
	// identifierPattern is the slope/tree identifier grammar NN[LL]-[L]/[LLL]NNN,
	// e.g. "11SW-D/805" or "11SW-D/R805".  Used both to extract an identifier
	// embedded in a longer bilingual sentence and to recognise a fully
	// canonical value.
	identifierPattern = regexp.MustCompile(`\d{1,2}[A-Z]{2}-[A-Z]/[A-Z]{0,3}\d+`)

	// identifierParts splits a canonical identifier into district digits,
	// district letters, section letter, optional letter infix, and trailing
	// number.
	identifierParts = regexp.MustCompile(`^(\d{1,2})([A-Z]{2})-([A-Z])/([A-Z]{0,3})(\d+)$`)

	// missingHyphen recognises an identifier whose hyphen was lost in
	// extraction, e.g. "11SWD/805".
	missingHyphen = regexp.MustCompile(`^(\d{1,2}[A-Z]{2})([A-Z]/[A-Z]{0,3}\d+)$`)

	// numericPrefix is the district prefix an identifier must start with for
	// OCR leading-character repair to apply.
	numericPrefix = regexp.MustCompile(`^\d{1,2}[A-Z]{2}`)

	whitespaceRun = regexp.MustCompile(`\s+`)
)

// confusableDigits maps letters commonly misread by OCR for digits.  Applied
// only to the leading character, and only when the repaired value gains a
// valid numeric district prefix.
var confusableDigits = map[byte]byte{
	'I': '1',
	'L': '1',
	'O': '0',
	'B': '8',
	'S': '5',
}

// locationPunct is the punctuation stripped from free-text locations.  No
// address parsing is attempted.
const locationPunct = `.,;:!?'"()[]{}#&*`

// NormalizeLocation canonicalizes a free-text location: trim, case-fold,
// strip common punctuation, collapse whitespace.
func NormalizeLocation(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(locationPunct, r) {
			b.WriteByte(' ')
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(b.String(), " "))
}

// NormalizeText canonicalizes names and subject phrases: case-fold, trim,
// collapse whitespace.  No stemming.
func NormalizeText(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	return whitespaceRun.ReplaceAllString(s, " ")
}

// NormalizeIdentifier canonicalizes a slope/tree identifier.  When the raw
// text is a longer sentence the first substring matching the identifier
// grammar is extracted; otherwise the value is uppercased, stripped to
// letters, digits, hyphen and slash, and run through the structural repair
// rules (leading OCR-confusable correction, hyphen re-insertion).  A value
// that still does not match the grammar is returned as stripped, so partial
// comparison remains possible.
func NormalizeIdentifier(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	if m := identifierPattern.FindString(s); m != "" {
		return m
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' || c == '/' {
			b.WriteByte(c)
		}
	}
	s = b.String()
	if s == "" {
		return ""
	}

	if repl, ok := confusableDigits[s[0]]; ok {
		candidate := string(repl) + s[1:]
		if numericPrefix.MatchString(candidate) {
			s = candidate
		}
	}

	if m := missingHyphen.FindStringSubmatch(s); m != nil {
		s = m[1] + "-" + m[2]
	}

	if m := identifierPattern.FindString(s); m != "" {
		return m
	}
	return s
}

// PhoneNumber carries both normalized forms of a contact number: the full
// digit string and its last-8-digit suffix, used for partial matching
// against numbers that include a country or area prefix.
type PhoneNumber struct {
	Full string
	Tail string
}

// IsEmpty reports whether no digits survived normalization.
func (p PhoneNumber) IsEmpty() bool { return p.Full == "" }

// NormalizePhone strips all non-digit characters and derives the last-8
// suffix.
func NormalizePhone(raw string) PhoneNumber {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	full := b.String()
	tail := full
	if len(full) > 8 {
		tail = full[len(full)-8:]
	}
	return PhoneNumber{Full: full, Tail: tail}
}

// tokenSet splits normalized text into a set of lower-cased keyword tokens.
func tokenSet(normalized string) map[string]struct{} {
	if normalized == "" {
		return nil
	}
	fields := strings.FieldsFunc(normalized, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') && !(r >= 0x80)
	})
	if len(fields) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// normalizedCase is the comparable form of a record or query, computed once.
type normalizedCase struct {
	location      string
	identifier    string
	subject       string
	subjectTokens map[string]struct{}
	name          string
	phone         PhoneNumber
}

func (n *normalizedCase) isEmpty() bool {
	return n.location == "" && n.identifier == "" && len(n.subjectTokens) == 0 &&
		n.name == "" && n.phone.IsEmpty()
}

func normalizeRecord(r *CaseRecord) normalizedCase {
	subject := NormalizeText(r.SubjectMatter)
	return normalizedCase{
		location:      NormalizeLocation(r.Location),
		identifier:    NormalizeIdentifier(r.SlopeOrTreeNo),
		subject:       subject,
		subjectTokens: tokenSet(subject),
		name:          NormalizeText(r.CallerName),
		phone:         NormalizePhone(r.ContactNo),
	}
}

func normalizeQuery(q *SimilarityQuery) normalizedCase {
	subject := NormalizeText(q.SubjectMatter)
	return normalizedCase{
		location:      NormalizeLocation(q.Location),
		identifier:    NormalizeIdentifier(q.SlopeOrTreeNo),
		subject:       subject,
		subjectTokens: tokenSet(subject),
		name:          NormalizeText(q.CallerName),
		phone:         NormalizePhone(q.ContactNo),
	}
}

// levenshtein computes the edit distance between two rune slices with the
// classic two-row dynamic program (unit insert/delete/substitute costs).
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// similarityRatio is the normalized edit-distance similarity
// 1 - distance/max(len_a, len_b), symmetric and bounded to [0,1].
func similarityRatio(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 0
	}
	return 1.0 - float64(levenshtein(ra, rb))/float64(longest)
}
