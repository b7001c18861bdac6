package sbi

import "testing"

func withFakeCall(t *testing.T, fn func(ext Extension, fid uint64, a0, a1, a2, a3 uint64) (int64, uint64)) {
	t.Helper()
	prev := callFn
	callFn = fn
	t.Cleanup(func() { callFn = prev })
}

func TestCallReturnsValueOnSuccess(t *testing.T) {
	withFakeCall(t, func(ext Extension, fid uint64, a0, a1, a2, a3 uint64) (int64, uint64) {
		if ext != ExtTimer || fid != FuncTimerSetTimer {
			t.Fatalf("unexpected ext/fid: %v/%d", ext, fid)
		}
		return int64(Success), 42
	})

	v, err := Call(ExtTimer, FuncTimerSetTimer, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 {
		t.Fatalf("value = %d, want 42", v)
	}
}

func TestCallReturnsErrorOnFailure(t *testing.T) {
	withFakeCall(t, func(ext Extension, fid uint64, a0, a1, a2, a3 uint64) (int64, uint64) {
		return int64(ErrNotSupported), 0
	})

	if _, err := Call(ExtTimer, FuncTimerSetTimer, 0); err != ErrNotSupported {
		t.Fatalf("err = %v, want ErrNotSupported", err)
	}
}

func TestConsoleWriterWritesEachByte(t *testing.T) {
	var sent []byte
	withFakeCall(t, func(ext Extension, fid uint64, a0, a1, a2, a3 uint64) (int64, uint64) {
		if ext != ExtLegacyPut {
			t.Fatalf("unexpected extension: %v", ext)
		}
		sent = append(sent, byte(a0))
		return int64(Success), 0
	})

	n, err := ConsoleWriter{}.Write([]byte("hi"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Fatalf("n = %d, want 2", n)
	}
	if string(sent) != "hi" {
		t.Fatalf("sent = %q, want %q", sent, "hi")
	}
}
