package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type fake struct {
	name string
	log  *[]string
	err  error
}

func (f *fake) Run() { *f.log = append(*f.log, "run "+f.name) }

func (f *fake) Shutdown(context.Context) error {
	*f.log = append(*f.log, "stop "+f.name)
	return f.err
}

func (f *fake) String() string { return f.name }

func TestGroup(t *testing.T) {
	var log []string
	boom := errors.New("boom")

	var g Group
	g.Add(&fake{name: "a", log: &log}, "not runnable", &fake{name: "b", log: &log, err: boom})
	g.Add(&fake{name: "c", log: &log, err: context.Canceled})

	g.Start()
	err := g.Shutdown(context.Background())

	want := []string{"run a", "run b", "run c", "stop c", "stop b", "stop a"}
	if !reflect.DeepEqual(log, want) {
		t.Errorf("calls = %v, want %v", log, want)
	}
	if !errors.Is(err, boom) {
		t.Errorf("Shutdown() = %v, want %v", err, boom)
	}
	if errors.Is(err, context.Canceled) {
		t.Error("context.Canceled should be ignored")
	}
}

func TestEmptyGroup(t *testing.T) {
	var g Group
	g.Start()
	if err := g.Shutdown(context.Background()); err != nil {
		t.Error(err)
	}
}
