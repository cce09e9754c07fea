// Package quality provides scoring and single-pass optimization of generated
// response text.
//
// This file implements the Flesch Reading Ease computation and the word,
// sentence, and syllable counting it depends on.
package quality

import (
	"strings"
	"unicode"
)

// Flesch Reading Ease coefficients.
const (
	fleschBase          = 206.835
	fleschSentenceCoeff = 1.015
	fleschSyllableCoeff = 84.6
)

// CountWords returns the number of whitespace-separated words in text.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// CountSentences returns the number of sentences in text, counting runs of
// sentence-ending punctuation as a single boundary. Text with no terminal
// punctuation counts as one sentence.
func CountSentences(text string) int {
	count := 0
	inSentence := false
	for _, r := range text {
		switch r {
		case '.', '!', '?':
			if inSentence {
				count++
				inSentence = false
			}
		default:
			if !unicode.IsSpace(r) {
				inSentence = true
			}
		}
	}
	if inSentence {
		count++
	}
	if count == 0 {
		count = 1
	}
	return count
}

// CountSyllables estimates the syllable count of text by counting vowel
// groups per word, discounting a silent trailing "e". Every word counts as
// at least one syllable.
func CountSyllables(text string) int {
	total := 0
	for _, word := range strings.Fields(text) {
		total += syllablesInWord(word)
	}
	return total
}

func syllablesInWord(word string) int {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, word)
	if cleaned == "" {
		return 0
	}

	count := 0
	prevVowel := false
	for _, r := range cleaned {
		vowel := strings.ContainsRune("aeiouy", r)
		if vowel && !prevVowel {
			count++
		}
		prevVowel = vowel
	}

	// Silent trailing "e" ("make", "configure") unless it is the only vowel
	// group, as in "the". The "-le" ending keeps its syllable ("cable").
	if strings.HasSuffix(cleaned, "e") && !strings.HasSuffix(cleaned, "le") && count > 1 {
		count--
	}
	if count < 1 {
		count = 1
	}
	return count
}

// FleschReadingEase computes the standard readability score
// 206.835 - 1.015*(words/sentences) - 84.6*(syllables/words).
// Higher is easier; typical prose lands between 0 and 100, but the raw
// formula is unbounded in both directions. Empty text scores zero.
func FleschReadingEase(text string) float64 {
	words := CountWords(text)
	if words == 0 {
		return 0
	}
	sentences := CountSentences(text)
	syllables := CountSyllables(text)
	return fleschBase -
		fleschSentenceCoeff*(float64(words)/float64(sentences)) -
		fleschSyllableCoeff*(float64(syllables)/float64(words))
}
