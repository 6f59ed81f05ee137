package saga

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func recordingStep(name string, log *[]string, actionErr, compErr error) Step {
	return Step{
		Name: name,
		Action: func(context.Context) error {
			*log = append(*log, "do:"+name)
			return actionErr
		},
		Compensate: func(context.Context) error {
			*log = append(*log, "undo:"+name)
			return compErr
		},
	}
}

func TestRunExecutesAllStepsInOrder(t *testing.T) {
	var log []string
	s := New(
		recordingStep("a", &log, nil, nil),
		recordingStep("b", &log, nil, nil),
		recordingStep("c", &log, nil, nil),
	)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"do:a", "do:b", "do:c"}
	if !reflect.DeepEqual(log, want) {
		t.Fatalf("expected %v, got %v", want, log)
	}
}

func TestRunUnwindsCompletedStepsInReverse(t *testing.T) {
	var log []string
	cause := errors.New("venue update failed")
	s := New(
		recordingStep("a", &log, nil, nil),
		recordingStep("b", &log, nil, nil),
		recordingStep("c", &log, cause, nil),
		recordingStep("d", &log, nil, nil),
	)

	err := s.Run(context.Background())
	if !errors.Is(err, cause) {
		t.Fatalf("expected original cause, got %v", err)
	}
	var stepErr *StepError
	if !errors.As(err, &stepErr) || stepErr.Step != "c" {
		t.Fatalf("expected failed step c, got %v", err)
	}

	want := []string{"do:a", "do:b", "do:c", "undo:b", "undo:a"}
	if !reflect.DeepEqual(log, want) {
		t.Fatalf("expected %v, got %v", want, log)
	}
}

func TestRunFirstStepFailureCompensatesNothing(t *testing.T) {
	var log []string
	s := New(recordingStep("a", &log, errors.New("nope"), nil))

	if err := s.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if !reflect.DeepEqual(log, []string{"do:a"}) {
		t.Fatalf("unexpected calls %v", log)
	}
}

func TestCompensationFailureKeepsOriginalError(t *testing.T) {
	var log []string
	cause := errors.New("profile update failed")
	compErr := errors.New("delete failed")

	var reported []string
	s := New(
		recordingStep("a", &log, nil, compErr),
		recordingStep("b", &log, cause, nil),
	)
	s.OnCompensationError = func(step string, err error) {
		reported = append(reported, step+": "+err.Error())
	}

	err := s.Run(context.Background())
	if !errors.Is(err, cause) {
		t.Fatalf("expected original cause to win, got %v", err)
	}
	if errors.Is(err, compErr) {
		t.Fatal("compensation error must not be part of the returned chain")
	}

	var stepErr *StepError
	if !errors.As(err, &stepErr) || len(stepErr.CompensationErrs) != 1 {
		t.Fatalf("expected one compensation error recorded, got %#v", err)
	}
	if !reflect.DeepEqual(reported, []string{"a: delete failed"}) {
		t.Fatalf("unexpected hook calls %v", reported)
	}
}

func TestCompensationRunsAfterCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var compCtxErr error

	s := New(
		Step{
			Name:   "a",
			Action: func(context.Context) error { return nil },
			Compensate: func(ctx context.Context) error {
				compCtxErr = ctx.Err()
				return nil
			},
		},
		Step{
			Name: "b",
			Action: func(context.Context) error {
				cancel()
				return context.Canceled
			},
		},
	)

	if err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation cause, got %v", err)
	}
	if compCtxErr != nil {
		t.Fatalf("compensation saw cancelled context: %v", compCtxErr)
	}
}
