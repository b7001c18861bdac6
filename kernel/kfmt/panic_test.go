package kfmt

import (
	"bytes"
	"errors"
	"rvkernel/kernel"
	"testing"
)

func TestPanic(t *testing.T) {
	defer func() { shutdownFn = func() { for {} } }()

	var shutdownCalled bool
	shutdownFn = func() { shutdownCalled = true }

	t.Run("with *kernel.Error", func(t *testing.T) {
		shutdownCalled = false
		buf := mockSink()
		err := &kernel.Error{Module: "test", Message: "panic test"}

		Panic(err)

		exp := "\n-----------------------------------\n[test] unrecoverable error: panic test\n*** kernel panic: system halted ***\n-----------------------------------\n"
		if got := buf.String(); got != exp {
			t.Fatalf("expected to get:\n%q\ngot:\n%q", exp, got)
		}
		if !shutdownCalled {
			t.Fatal("expected shutdownFn() to be called by Panic")
		}
	})

	t.Run("with error", func(t *testing.T) {
		shutdownCalled = false
		buf := mockSink()
		err := errors.New("go error")

		Panic(err)

		exp := "\n-----------------------------------\n[rt] unrecoverable error: go error\n*** kernel panic: system halted ***\n-----------------------------------\n"
		if got := buf.String(); got != exp {
			t.Fatalf("expected to get:\n%q\ngot:\n%q", exp, got)
		}
		if !shutdownCalled {
			t.Fatal("expected shutdownFn() to be called by Panic")
		}
	})

	t.Run("with string", func(t *testing.T) {
		shutdownCalled = false
		buf := mockSink()

		Panic("string error")

		exp := "\n-----------------------------------\n[rt] unrecoverable error: string error\n*** kernel panic: system halted ***\n-----------------------------------\n"
		if got := buf.String(); got != exp {
			t.Fatalf("expected to get:\n%q\ngot:\n%q", exp, got)
		}
		if !shutdownCalled {
			t.Fatal("expected shutdownFn() to be called by Panic")
		}
	})

	t.Run("without error", func(t *testing.T) {
		shutdownCalled = false
		buf := mockSink()

		Panic(nil)

		exp := "\n-----------------------------------\n*** kernel panic: system halted ***\n-----------------------------------\n"
		if got := buf.String(); got != exp {
			t.Fatalf("expected to get:\n%q\ngot:\n%q", exp, got)
		}
		if !shutdownCalled {
			t.Fatal("expected shutdownFn() to be called by Panic")
		}
	})
}

func mockSink() *bytes.Buffer {
	buf := &bytes.Buffer{}
	SetOutputSink(buf)
	return buf
}
