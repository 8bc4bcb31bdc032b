package export_test

import (
	"context"
	"reflect"
	"testing"

	export "github.com/centraunit/goallin_export"
	"github.com/centraunit/goallin_export/mock"
)

func BenchmarkAcquireRelease(b *testing.B) {
	registry := export.NewLocalRegistry()
	container := mock.NewFakeContainer()
	exp := export.NewExporter(registry, container, export.ExportConfig{
		Target:    &mock.GreeterService{Name: "bench"},
		Contracts: []reflect.Type{export.Contract[mock.Greeter]()},
	})
	if err := exp.Publish(); err != nil {
		b.Fatal(err)
	}
	ctx := export.NewConsumerContext(context.Background(), "bench")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		instance, err := registry.GetService("mock.Greeter", ctx)
		if err != nil {
			b.Fatal(err)
		}
		registry.UngetService("mock.Greeter", ctx, instance)
	}
}

func BenchmarkScopedAcquireRelease(b *testing.B) {
	registry := export.NewLocalRegistry()
	container := mock.NewFakeContainer()
	container.BindConsumer("scoped", func() interface{} { return &mock.GreeterService{Name: "bench"} })
	space := export.NewContractSpace()
	if err := export.AddContract[mock.Greeter](space); err != nil {
		b.Fatal(err)
	}
	exp := export.NewExporter(registry, container, export.ExportConfig{
		TargetName: "scoped",
		AutoExport: export.AutoExportInterfaces,
		Space:      space,
	})
	if err := exp.Publish(); err != nil {
		b.Fatal(err)
	}
	ctx := export.NewConsumerContext(context.Background(), "bench")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		instance, err := registry.GetService("mock.Greeter", ctx)
		if err != nil {
			b.Fatal(err)
		}
		registry.UngetService("mock.Greeter", ctx, instance)
	}
}

func BenchmarkDetect(b *testing.B) {
	space := export.NewContractSpace()
	if err := export.AddContract[mock.Greeter](space); err != nil {
		b.Fatal(err)
	}
	if err := export.AddContract[mock.Runner](space); err != nil {
		b.Fatal(err)
	}
	detector := export.NewDetector(space)
	target := reflect.TypeOf(&mock.AuditedGreeter{})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		detector.Detect(target, export.AutoExportAll)
	}
}
