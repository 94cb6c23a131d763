package chat

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	boldRe      = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicRe    = regexp.MustCompile(`\*(.*?)\*`)
	underlineRe = regexp.MustCompile(`__(.*?)__`)
	emphasisRe  = regexp.MustCompile(`_(.*?)_`)
	codeRe      = regexp.MustCompile("`(.*?)`")
	strikeRe    = regexp.MustCompile(`~~(.*?)~~`)
	headerRe    = regexp.MustCompile(`#+\s*`)
	linkRe      = regexp.MustCompile(`\[(.*?)\]\(.*?\)`)
	leftoverRe  = regexp.MustCompile("[*_`]+")
	spaceRe     = regexp.MustCompile(`\s+`)
)

// CleanForTTS strips Markdown formatting so synthesized speech does not read
// asterisks and backticks aloud.
func CleanForTTS(text string) string {
	if text == "" {
		return text
	}
	text = boldRe.ReplaceAllString(text, "$1")
	text = italicRe.ReplaceAllString(text, "$1")
	text = underlineRe.ReplaceAllString(text, "$1")
	text = emphasisRe.ReplaceAllString(text, "$1")
	text = codeRe.ReplaceAllString(text, "$1")
	text = strikeRe.ReplaceAllString(text, "$1")
	text = headerRe.ReplaceAllString(text, "")
	text = linkRe.ReplaceAllString(text, "$1")
	text = leftoverRe.ReplaceAllString(text, "")
	text = spaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

const (
	compactMaxSentences = 3
	compactMaxBullets   = 5
	compactMaxChars     = 800
)

// CompactText trims a verbose assistant reply down to chat size: an intro
// line plus the first few bullets when the text is a list, otherwise the
// first few sentences, hard-capped at compactMaxChars.
func CompactText(text string) string {
	if text == "" {
		return text
	}
	text = strings.TrimSpace(text)
	lines := strings.Split(text, "\n")

	var compact string
	if hasBullets(lines) {
		var intro string
		var bullets []string
		for _, ln := range lines {
			trimmed := strings.TrimSpace(ln)
			if trimmed == "" {
				continue
			}
			if isBullet(trimmed) {
				bullets = append(bullets, strings.TrimRight(ln, " \t"))
			} else if intro == "" {
				intro = strings.TrimRight(ln, " \t")
			}
		}
		var kept []string
		if intro != "" {
			kept = append(kept, intro)
		}
		if len(bullets) > compactMaxBullets {
			bullets = bullets[:compactMaxBullets]
		}
		kept = append(kept, bullets...)
		compact = strings.TrimSpace(strings.Join(kept, "\n"))
	} else {
		sentences := splitSentences(text)
		if len(sentences) > compactMaxSentences {
			sentences = sentences[:compactMaxSentences]
		}
		compact = strings.TrimSpace(strings.Join(sentences, " "))
	}

	if len(compact) > compactMaxChars {
		runes := []rune(compact)
		if len(runes) > compactMaxChars {
			runes = runes[:compactMaxChars]
		}
		cut := string(runes)
		if i := strings.LastIndex(cut, " "); i > 0 {
			cut = cut[:i]
		}
		compact = cut + "…"
	}
	return compact
}

func hasBullets(lines []string) bool {
	for _, ln := range lines {
		if isBullet(strings.TrimSpace(ln)) {
			return true
		}
	}
	return false
}

func isBullet(line string) bool {
	return strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*") ||
		strings.HasPrefix(line, "•") || strings.HasPrefix(line, "–")
}

// splitSentences breaks text on sentence terminators followed by whitespace.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		j := i + 1
		for j < len(text) && (text[j] == '.' || text[j] == '!' || text[j] == '?') {
			j++
		}
		if j < len(text) && !isSpace(text[j]) {
			i = j - 1
			continue
		}
		if s := strings.TrimSpace(text[start:j]); s != "" {
			out = append(out, s)
		}
		for j < len(text) && isSpace(text[j]) {
			j++
		}
		start = j
		i = j - 1
	}
	if start < len(text) {
		if s := strings.TrimSpace(text[start:]); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}

var coordRe = regexp.MustCompile(`([+-]?[0-9]*\.?[0-9]+)\s*,\s*([+-]?[0-9]*\.?[0-9]+)`)

// ParseLatLon extracts coordinates from a free-form location string such as
// "9.145, 40.489" or "Farm A (9.1, 40.4)". Returns false when the string
// carries no coordinate pair.
func ParseLatLon(location string) (lat, lon float64, ok bool) {
	if location == "" {
		return 0, 0, false
	}
	m := coordRe.FindStringSubmatch(location)
	if m == nil {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err = strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

var (
	latTagRe        = regexp.MustCompile(`,?\s*lat:\s*[\d.-]+`)
	lonTagRe        = regexp.MustCompile(`,?\s*lon:\s*[\d.-]+`)
	parenCoordRe    = regexp.MustCompile(`\s*\([\d.-]+,\s*[\d.-]+\)`)
	bareCoordRe     = regexp.MustCompile(`\s*[\d.-]+,\s*[\d.-]+`)
	leadingCommaRe  = regexp.MustCompile(`^,\s*`)
	trailingCommaRe = regexp.MustCompile(`,\s*$`)
)

// stripCoordinates removes raw coordinate artifacts from a location string,
// leaving only the human-readable part.
func stripCoordinates(location string) string {
	location = latTagRe.ReplaceAllString(location, "")
	location = lonTagRe.ReplaceAllString(location, "")
	location = parenCoordRe.ReplaceAllString(location, "")
	location = bareCoordRe.ReplaceAllString(location, "")
	location = spaceRe.ReplaceAllString(location, " ")
	location = strings.TrimSpace(location)
	location = leadingCommaRe.ReplaceAllString(location, "")
	location = trailingCommaRe.ReplaceAllString(location, "")
	if location == "" {
		return "Unknown location"
	}
	return location
}
