package chunk

import (
	"reflect"
	"testing"

	"github.com/kailas-cloud/tensordex/internal/domain/index"
)

func cfg(method index.SplitMethod, length, overlap int) index.TextPreprocessing {
	return index.TextPreprocessing{
		SplitMethod:  method,
		SplitLength:  length,
		SplitOverlap: overlap,
	}
}

func TestSplit_Empty(t *testing.T) {
	if got := Split("", cfg(index.SplitSentence, 2, 0)); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
	if got := Split("   \n\t  ", cfg(index.SplitWord, 5, 0)); got != nil {
		t.Errorf("expected nil for whitespace-only input, got %v", got)
	}
}

func TestSplit_Sentences(t *testing.T) {
	text := "First sentence. Second one! Third? Fourth."
	got := Split(text, cfg(index.SplitSentence, 2, 0))
	want := []string{
		"First sentence. Second one!",
		"Third? Fourth.",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSplit_SentencesWithOverlap(t *testing.T) {
	text := "A. B. C. D."
	got := Split(text, cfg(index.SplitSentence, 2, 1))
	want := []string{"A. B.", "B. C.", "C. D."}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSplit_TerminatorRuns(t *testing.T) {
	// a run of terminators stays attached to its sentence
	got := Split("Really?! Yes... Sure.", cfg(index.SplitSentence, 1, 0))
	want := []string{"Really?!", "Yes...", "Sure."}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSplit_NoTerminator(t *testing.T) {
	got := Split("no punctuation at all", cfg(index.SplitSentence, 2, 0))
	want := []string{"no punctuation at all"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSplit_DecimalNotSplit(t *testing.T) {
	// a dot not followed by whitespace does not terminate a sentence
	got := Split("Version 1.5 is out. Upgrade now.", cfg(index.SplitSentence, 1, 0))
	want := []string{"Version 1.5 is out.", "Upgrade now."}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSplit_Words(t *testing.T) {
	got := Split("one two three four five", cfg(index.SplitWord, 2, 0))
	want := []string{"one two", "three four", "five"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSplit_WordsWithOverlap(t *testing.T) {
	got := Split("a b c d", cfg(index.SplitWord, 3, 1))
	want := []string{"a b c", "c d"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSplit_Characters(t *testing.T) {
	got := Split("abcdef", cfg(index.SplitCharacter, 3, 0))
	want := []string{"abc", "def"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSplit_CharactersUnicode(t *testing.T) {
	// runes, not bytes
	got := Split("привет", cfg(index.SplitCharacter, 3, 0))
	want := []string{"при", "вет"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSplit_CJKTerminators(t *testing.T) {
	got := Split("你好。 再见！", cfg(index.SplitSentence, 1, 0))
	want := []string{"你好。", "再见！"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestWindows_OverlapGECausesStepOne(t *testing.T) {
	// overlap >= length degrades to step 1 instead of looping forever
	got := windows([]string{"a", "b", "c"}, 2, 5, " ")
	want := []string{"a b", "b c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestWindows_ZeroLength(t *testing.T) {
	got := windows([]string{"a", "b"}, 0, 0, " ")
	want := []string{"a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
