// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package refindex parses a document's bibliography section into structured
// reference entries and provides the lookups used during marker resolution.
package refindex

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/citation-decoder/pkg/types"
)

// ErrNoEntries reports that no recognizable bibliography entries were found.
// This is fatal for a document run: no marker can ever resolve without it.
var ErrNoEntries = errors.New("no recognizable bibliography entries")

// Index is a read-only lookup over parsed reference entries. It is built
// once per document and safe for concurrent readers afterwards.
type Index struct {
	entries  []*types.ReferenceEntry
	byKey    map[string]*types.ReferenceEntry
	byNumber map[int]*types.ReferenceEntry

	// surnameYear groups entries by "surname|year" in document order, so
	// the resolver can see every candidate for an ambiguous author-year
	// marker.
	surnameYear map[string][]*types.ReferenceEntry

	// surnames pairs each entry with its normalized lead surname, in
	// document order, for fuzzy matching.
	surnames []SurnameEntry
}

// SurnameEntry pairs a normalized lead-author surname with its entry.
type SurnameEntry struct {
	Surname string
	Entry   *types.ReferenceEntry
}

var (
	// headingRe matches a references-section heading line, optionally
	// numbered ("7. References").
	headingRe = regexp.MustCompile(`(?mi)^\s*(?:\d+\.?\s+)?(?:references|bibliography|works cited|literature cited)\s*:?\s*$`)

	// numberedStartRe matches the start of a numbered entry: "[3] " or "3. "
	// at the beginning of a line.
	numberedStartRe = regexp.MustCompile(`(?m)^\s*(?:\[(\d+)\]|(\d{1,3})\.)\s+`)

	// authorStartRe matches a line opening with a surname-comma author
	// block, e.g. "Smith, A. B.,", which starts a new line-delimited
	// author-year entry.
	authorStartRe = regexp.MustCompile(`^[A-Z][A-Za-z'\x60-]+,\s+[A-Z]`)

	// yearRe captures a publication year with optional suffix: "2020",
	// "2021a". Parenthesized years ("(2020)") match too.
	yearRe = regexp.MustCompile(`\b((?:19|20)\d{2})([a-z])?\b`)

	// punctRe strips everything but letters when normalizing surnames.
	punctRe = regexp.MustCompile(`[^a-z]+`)
)

// Build parses bibliography text into an Index. The text may be a clean
// reference list or the tail slice of the full document stream; a leading
// "References"/"Bibliography" heading is skipped when present. It fails
// with ErrNoEntries when nothing recognizable is found. Entries whose
// internal structure cannot be parsed are retained with RawText only.
func Build(bibliographyText string) (*Index, error) {
	text := trimToReferences(bibliographyText)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("parsing bibliography: %w", ErrNoEntries)
	}

	raws := splitEntries(text)
	if len(raws) == 0 {
		return nil, fmt.Errorf("parsing bibliography: %w", ErrNoEntries)
	}

	idx := &Index{
		byKey:       make(map[string]*types.ReferenceEntry),
		byNumber:    make(map[int]*types.ReferenceEntry),
		surnameYear: make(map[string][]*types.ReferenceEntry),
	}

	for i, raw := range raws {
		entry := parseEntry(raw, i)
		idx.add(entry, raw.number)
	}

	return idx, nil
}

// add registers an entry under every applicable lookup.
func (idx *Index) add(entry *types.ReferenceEntry, number int) {
	// Positional fallback keeps keys unique if a document repeats one.
	if _, taken := idx.byKey[entry.Key]; taken {
		entry.Key = fmt.Sprintf("%s-%d", entry.Key, len(idx.entries)+1)
	}

	idx.entries = append(idx.entries, entry)
	idx.byKey[entry.Key] = entry

	if number > 0 {
		idx.byNumber[number] = entry
	}

	if len(entry.Authors) > 0 && entry.Year > 0 {
		surname := LeadSurname(entry.Authors[0])
		if surname != "" {
			k := surnameYearKey(surname, entry.Year)
			idx.surnameYear[k] = append(idx.surnameYear[k], entry)
			idx.surnames = append(idx.surnames, SurnameEntry{Surname: surname, Entry: entry})
		}
	}
}

// Entries returns all entries in document order.
func (idx *Index) Entries() []*types.ReferenceEntry { return idx.entries }

// Len returns the number of entries.
func (idx *Index) Len() int { return len(idx.entries) }

// ByKey returns the entry with the given citation key, or nil.
func (idx *Index) ByKey(key string) *types.ReferenceEntry { return idx.byKey[key] }

// ByNumber returns the entry with the given bibliography number, or nil.
func (idx *Index) ByNumber(n int) *types.ReferenceEntry { return idx.byNumber[n] }

// ByAuthorYear returns every entry whose lead-author surname and year match,
// in document order. Surname matching is case-insensitive and ignores
// punctuation. Large bibliographies routinely hold several same-surname,
// same-year entries; the caller disambiguates.
func (idx *Index) ByAuthorYear(surname string, year int) []*types.ReferenceEntry {
	return idx.surnameYear[surnameYearKey(NormalizeSurname(surname), year)]
}

// SurnameEntries returns (normalized surname, entry) pairs in document
// order for fuzzy matching.
func (idx *Index) SurnameEntries() []SurnameEntry { return idx.surnames }

// NormalizeSurname lowercases a surname and strips punctuation and
// diacritics-adjacent characters so "O'Brien" and "obrien" compare equal.
func NormalizeSurname(s string) string {
	return punctRe.ReplaceAllString(strings.ToLower(s), "")
}

// LeadSurname extracts the normalized surname from an author name in
// "Surname, Initials" form ("van der Berg, A." yields "vanderberg").
func LeadSurname(author string) string {
	if i := strings.Index(author, ","); i >= 0 {
		author = author[:i]
	}
	return NormalizeSurname(author)
}

func surnameYearKey(normalizedSurname string, year int) string {
	return normalizedSurname + "|" + strconv.Itoa(year)
}

// trimToReferences drops everything up to and including the last
// references-section heading, if one is present. Bibliography text handed
// to us is often the tail slice of the full document stream.
func trimToReferences(text string) string {
	locs := headingRe.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return text
	}
	last := locs[len(locs)-1]
	return text[last[1]:]
}

// rawEntry is one unparsed bibliography chunk.
type rawEntry struct {
	text   string
	number int // 0 when the entry carries no bibliography number
}

// splitEntries cuts bibliography text into per-entry chunks. Numbered
// formats ("[1] ..." / "1. ...") take precedence; otherwise lines opening
// with an author block start a new entry and other lines continue the
// previous one.
func splitEntries(text string) []rawEntry {
	if numbered := splitNumbered(text); len(numbered) > 0 {
		return numbered
	}
	return splitLineDelimited(text)
}

func splitNumbered(text string) []rawEntry {
	locs := numberedStartRe.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}

	// Mixed-format lists put unnumbered entries ahead of the first numbered
	// one. Whatever precedes it is kept, parseable or not.
	entries := chunkLines(text[:locs[0][0]])

	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}

		body := strings.TrimSpace(collapseWhitespace(text[loc[1]:end]))
		if body == "" {
			continue
		}

		num := 0
		for _, g := range []int{2, 4} { // capture group 1 ([n]) or 2 (n.)
			if loc[g] >= 0 {
				num, _ = strconv.Atoi(text[loc[g]:loc[g+1]])
				break
			}
		}

		entries = append(entries, rawEntry{text: body, number: num})
	}
	return entries
}

func splitLineDelimited(text string) []rawEntry {
	entries := chunkLines(text)

	// A reference list needs recognizable entries: at least one chunk must
	// carry a parseable year, or this was likely not a bibliography at all.
	for _, e := range entries {
		if yearRe.MatchString(e.text) {
			return entries
		}
	}
	return nil
}

// chunkLines cuts text into chunks at blank lines and at lines opening with
// an author block.
func chunkLines(text string) []rawEntry {
	var entries []rawEntry
	var current []string

	flush := func() {
		joined := strings.TrimSpace(strings.Join(current, " "))
		if joined != "" {
			entries = append(entries, rawEntry{text: joined})
		}
		current = nil
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			flush()
		case authorStartRe.MatchString(trimmed) && len(current) > 0:
			flush()
			current = append(current, trimmed)
		default:
			current = append(current, trimmed)
		}
	}
	flush()
	return entries
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// parseEntry extracts structured fields from one raw bibliography chunk.
// Entries that defy parsing keep their raw text and a positional key so
// they are never dropped silently.
func parseEntry(raw rawEntry, position int) *types.ReferenceEntry {
	entry := &types.ReferenceEntry{RawText: raw.text}

	if m := yearRe.FindStringSubmatch(raw.text); m != nil {
		entry.Year, _ = strconv.Atoi(m[1])
		entry.Suffix = m[2]
	}

	entry.Authors = parseAuthors(authorBlock(raw.text))
	entry.Title = parseTitle(raw.text)

	entry.Key = entryKey(entry, raw.number, position)
	return entry
}

// entryKey derives the citation key: the bibliography number for numbered
// entries, a surname-year slug for author-year entries, and a positional
// fallback otherwise.
func entryKey(entry *types.ReferenceEntry, number, position int) string {
	if number > 0 {
		return strconv.Itoa(number)
	}
	if len(entry.Authors) > 0 && entry.Year > 0 {
		surname := LeadSurname(entry.Authors[0])
		if surname != "" {
			return fmt.Sprintf("%s%d%s", surname, entry.Year, entry.Suffix)
		}
	}
	return fmt.Sprintf("entry-%d", position+1)
}

// authorBlock returns the author portion of an entry: the text before the
// parenthesized year in APA-style entries, or before the first sentence
// boundary otherwise.
func authorBlock(raw string) string {
	if i := strings.Index(raw, "("); i > 0 {
		head := raw[:i]
		if yearRe.MatchString(raw[i:]) && authorStartRe.MatchString(strings.TrimSpace(head)) {
			return strings.TrimRight(strings.TrimSpace(head), ". ")
		}
	}

	parts := splitOnPeriods(raw)
	if len(parts) > 0 && authorStartRe.MatchString(parts[0]) {
		return parts[0]
	}
	return ""
}

// parseAuthors splits an author block like "Smith, A., Jones, B., and
// Brown, C." into individual names.
func parseAuthors(block string) []string {
	block = strings.TrimSpace(block)
	if block == "" {
		return nil
	}

	block = strings.ReplaceAll(block, " & ", " and ")
	block = strings.TrimSuffix(block, " et al.")

	var authors []string
	for _, half := range strings.Split(block, " and ") {
		for _, name := range splitNameList(half) {
			name = strings.Trim(name, ", ")
			if name != "" {
				authors = append(authors, name)
			}
		}
	}
	return authors
}

// splitNameList cuts "Smith, A., Jones, B." at the commas that separate
// authors, keeping the comma inside each "Surname, Initials" pair. Text
// past the last author's initials is title spillover from period-joined
// entries, not another name, so splitting stops there.
func splitNameList(s string) []string {
	var names []string
	fields := strings.Split(s, ",")

	for i := 0; i < len(fields); i++ {
		surname := strings.TrimSpace(fields[i])
		if surname == "" {
			continue
		}
		if i+1 < len(fields) {
			initials, rest := leadingInitials(strings.TrimSpace(fields[i+1]))
			if initials != "" {
				names = append(names, surname+", "+initials)
				if rest != "" {
					break
				}
				i++
				continue
			}
		}
		names = append(names, surname)
	}
	return names
}

// leadingInitials splits a fragment into its initials prefix ("A. B.") and
// whatever follows. An empty prefix means the fragment opens with a word,
// likely another surname.
func leadingInitials(s string) (initials, rest string) {
	fields := strings.Fields(s)
	n := 0
	for _, f := range fields {
		part := strings.TrimSuffix(f, ".")
		if len(part) != 1 || part[0] < 'A' || part[0] > 'Z' {
			break
		}
		n++
	}
	if n == 0 {
		return "", s
	}
	return strings.Join(fields[:n], " "), strings.Join(fields[n:], " ")
}

// parseTitle extracts the title: the first sentence after the year for
// APA-style entries, or the second period-delimited segment otherwise.
func parseTitle(raw string) string {
	// APA: "Authors (2020). Title. Venue."
	if m := regexp.MustCompile(`\((?:19|20)\d{2}[a-z]?\)\.?\s+`).FindStringIndex(raw); m != nil {
		rest := splitOnPeriods(raw[m[1]:])
		if len(rest) > 0 {
			return strings.TrimSpace(rest[0])
		}
	}

	parts := splitOnPeriods(raw)
	if len(parts) >= 2 && authorStartRe.MatchString(parts[0]) {
		return strings.TrimSpace(parts[1])
	}
	if len(parts) >= 1 && !authorStartRe.MatchString(parts[0]) {
		return strings.TrimSpace(parts[0])
	}
	return ""
}

// initialRe matches single-letter author initials like "A." so period-based
// splitting does not cut names apart.
var initialRe = regexp.MustCompile(`\b([A-Z])\.`)

// splitOnPeriods splits an entry into segments at sentence-period
// boundaries, protecting common abbreviations and author initials.
func splitOnPeriods(text string) []string {
	safe := strings.ReplaceAll(text, "et al.", "et al\x00")
	safe = strings.ReplaceAll(safe, "e.g.", "e\x00g\x00")
	safe = strings.ReplaceAll(safe, "i.e.", "i\x00e\x00")
	safe = initialRe.ReplaceAllString(safe, "${1}\x00")

	parts := strings.Split(safe, ". ")

	var result []string
	for _, p := range parts {
		p = strings.ReplaceAll(p, "\x00", ".")
		p = strings.TrimRight(p, ".")
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
