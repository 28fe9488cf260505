package layout

import (
	"math/rand"
	"reflect"
	"strconv"
	"testing"
)

// box makes an axis-aligned quadrilateral in vendor order.
func box(x, y, w, h float64) []Point {
	return []Point{{X: x, Y: y}, {X: x + w, Y: y}, {X: x + w, Y: y + h}, {X: x, Y: y + h}}
}

func tok(text string, x, y float64) Token {
	return Token{Text: text, Polygon: box(x, y, 20, 10)}
}

func TestSegment_Empty(t *testing.T) {
	if got := Segment(nil, LeaseRules()); len(got) != 0 {
		t.Errorf("Expected no paragraphs, got %d", len(got))
	}
}

func TestSegment_EnumerationMarkerWithFollowingToken(t *testing.T) {
	a := Token{Text: "1.", Polygon: box(10, 100, 15, 12)}
	b := Token{Text: "계약", Polygon: box(30, 101, 40, 12)}

	got := Segment([]Token{a, b}, LeaseRules())
	if len(got) != 1 {
		t.Fatalf("Expected 1 paragraph, got %d", len(got))
	}
	if got[0].Text != "1. 계약" {
		t.Errorf("Expected '1. 계약', got '%s'", got[0].Text)
	}
	want := BoundingBox(append(append([]Point{}, a.Polygon...), b.Polygon...))
	if !reflect.DeepEqual(got[0].BoundingBox, want) {
		t.Errorf("Expected union box %v, got %v", want, got[0].BoundingBox)
	}
}

func TestSegment_BoundaryTokensSplitParagraphs(t *testing.T) {
	tokens := []Token{
		tok("부동산", 10, 10),
		tok("임대차", 40, 10),
		tok("계약서", 70, 10),
		tok("임대인", 10, 30),
		tok("홍길동", 40, 30),
		tok("임차인", 10, 50),
		tok("김철수", 40, 50),
		tok("2.", 10, 70),
		tok("보증금", 40, 70),
	}
	got := Texts(Segment(tokens, LeaseRules()))
	want := []string{"부동산 임대차 계약서", "임대인 홍길동", "임차인 김철수", "2. 보증금"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestSegment_SortsByFirstVertexY(t *testing.T) {
	tokens := []Token{
		tok("아래", 10, 90),
		tok("위", 10, 5),
		tok("중간", 10, 40),
	}
	got := Segment(tokens, LeaseRules())
	if len(got) != 1 || got[0].Text != "위 중간 아래" {
		t.Errorf("Expected single paragraph '위 중간 아래', got %+v", Texts(got))
	}
}

func TestSegment_EqualYKeepsVendorOrder(t *testing.T) {
	tokens := []Token{
		tok("셋", 90, 20),
		tok("하나", 10, 20),
		tok("둘", 50, 20),
	}
	got := Segment(tokens, LeaseRules())
	if got[0].Text != "셋 하나 둘" {
		t.Errorf("Expected vendor order on ties, got '%s'", got[0].Text)
	}
}

func TestSegment_TrimmedRoleLabel(t *testing.T) {
	tokens := []Token{tok("서문", 0, 0), tok(" 임대인 ", 0, 10), tok("이름", 0, 20)}
	got := Segment(tokens, LeaseRules())
	if len(got) != 2 {
		t.Fatalf("Expected 2 paragraphs, got %d", len(got))
	}
	// boundary token keeps its own untrimmed text
	if got[1].Text != " 임대인  이름" {
		t.Errorf("Unexpected text '%s'", got[1].Text)
	}
}

func TestSegment_EnumerationNeedsFullMatch(t *testing.T) {
	r := LeaseRules()
	cases := map[string]bool{
		"1.":    true,
		"12.":   true,
		" 3. ":  true,
		"1":     false,
		"1.5":   false,
		"제1조.": false,
		"a.":    false,
		"임대인":   true,
		"임대인은":  false,
	}
	for in, want := range cases {
		if got := r.IsBoundary(in); got != want {
			t.Errorf("IsBoundary(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSegment_DoesNotMutateInput(t *testing.T) {
	tokens := []Token{tok("b", 0, 50), tok("a", 0, 10)}
	_ = Segment(tokens, LeaseRules())
	if tokens[0].Text != "b" || tokens[1].Text != "a" {
		t.Errorf("Input order changed: %+v", tokens)
	}
}

// Every input token lands in exactly one paragraph and every paragraph box is
// the tightest cover of its members.
func TestSegment_TokenConservationAndTightBoxes(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	words := []string{"임대인", "임차인", "1.", "2.", "계약", "보증금", "월세", "관리비", "주소", "서울시"}

	for run := 0; run < 50; run++ {
		n := rng.Intn(40)
		tokens := make([]Token, n)
		for i := range tokens {
			w := words[rng.Intn(len(words))] + strconv.Itoa(rng.Intn(2))
			if rng.Intn(3) == 0 {
				w = words[rng.Intn(len(words))]
			}
			tokens[i] = tok(w, float64(rng.Intn(500)), float64(rng.Intn(20)*10))
		}

		paragraphs := Segment(tokens, LeaseRules())

		count := 0
		seen := map[string]int{}
		for _, p := range paragraphs {
			count += len(p.Tokens)
			var pts []Point
			for _, m := range p.Tokens {
				seen[m.Text]++
				pts = append(pts, m.Polygon...)
			}
			if !reflect.DeepEqual(p.BoundingBox, BoundingBox(pts)) {
				t.Fatalf("run %d: box %v is not the cover of its tokens", run, p.BoundingBox)
			}
		}
		if count != n {
			t.Fatalf("run %d: expected %d tokens across paragraphs, got %d", run, n, count)
		}
		for _, tk := range tokens {
			seen[tk.Text]--
		}
		for w, c := range seen {
			if c != 0 {
				t.Fatalf("run %d: token %q multiset mismatch (%d)", run, w, c)
			}
		}
	}
}
