package envutil

import (
	"testing"
	"time"
)

func TestDuration(t *testing.T) {
	t.Setenv("RECOMMEND_TEST_DURATION", "15m")
	if got := Duration("RECOMMEND_TEST_DURATION", time.Second); got != 15*time.Minute {
		t.Fatalf("Duration: want=%v got=%v", 15*time.Minute, got)
	}
	t.Setenv("RECOMMEND_TEST_DURATION", "90")
	if got := Duration("RECOMMEND_TEST_DURATION", time.Second); got != 90*time.Second {
		t.Fatalf("Duration seconds: want=%v got=%v", 90*time.Second, got)
	}
	t.Setenv("RECOMMEND_TEST_DURATION", "soon")
	if got := Duration("RECOMMEND_TEST_DURATION", time.Second); got != time.Second {
		t.Fatalf("Duration fallback: want=%v got=%v", time.Second, got)
	}
}

func TestBoolAndList(t *testing.T) {
	t.Setenv("RECOMMEND_TEST_BOOL", "off")
	if Bool("RECOMMEND_TEST_BOOL", true) {
		t.Fatalf("Bool: want=false got=true")
	}
	t.Setenv("RECOMMEND_TEST_BOOL", "maybe")
	if !Bool("RECOMMEND_TEST_BOOL", true) {
		t.Fatalf("Bool fallback: want=true got=false")
	}

	t.Setenv("RECOMMEND_TEST_LIST", " a, ,b ")
	got := List("RECOMMEND_TEST_LIST", nil)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("List: want=[a b] got=%v", got)
	}
}
