package objectstore

import "testing"

func TestRecoverToError_CatchesPanic(t *testing.T) {
	var result error
	func() {
		defer recoverToError(&result)
		panic("boom")
	}()
	if result == nil {
		t.Fatal("expected recoverToError to populate result from a panic")
	}
	oe, ok := result.(*ObjectError)
	if !ok || oe.Kind != KindFatal {
		t.Fatalf("expected KindFatal, got %v", result)
	}
}

func TestRecoverToError_NoPanicLeavesResultUntouched(t *testing.T) {
	var result error
	func() {
		defer recoverToError(&result)
	}()
	if result != nil {
		t.Fatalf("expected result to remain nil without a panic, got %v", result)
	}
}
