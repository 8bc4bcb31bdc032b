package export_test

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"testing"

	export "github.com/centraunit/goallin_export"
	"github.com/centraunit/goallin_export/mock"
	"github.com/stretchr/testify/suite"
)

type ConcurrentTestSuite struct {
	suite.Suite
	registry  *export.LocalRegistry
	container *mock.FakeContainer
	space     *export.ContractSpace
}

func (s *ConcurrentTestSuite) SetupTest() {
	s.registry = export.NewLocalRegistry()
	s.container = mock.NewFakeContainer()
	s.space = export.NewContractSpace()
	s.NoError(export.AddContract[mock.Greeter](s.space))
}

func (s *ConcurrentTestSuite) TestConcurrentScopedAcquisitions() {
	s.container.BindConsumer("scoped", func() interface{} { return &mock.GreeterService{Name: "scoped"} })
	exp := export.NewExporter(s.registry, s.container, export.ExportConfig{
		TargetName: "scoped",
		AutoExport: export.AutoExportInterfaces,
		Space:      s.space,
	})
	s.Require().NoError(exp.Publish())

	const consumers = 16
	var wg sync.WaitGroup
	errs := make(chan error, consumers)

	for i := 0; i < consumers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			ctx := export.NewConsumerContext(context.Background(), fmt.Sprintf("consumer-%d", id))
			instance, err := s.registry.GetService("mock.Greeter", ctx)
			if err != nil {
				errs <- err
				return
			}
			s.registry.UngetService("mock.Greeter", ctx, instance)
		}(i)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		s.NoError(err)
	}

	for i := 0; i < consumers; i++ {
		consumer := fmt.Sprintf("consumer-%d", i)
		s.Equal(1, s.container.DestroyCount("scoped", consumer),
			"each consumer's callback fires exactly once")
	}
}

func (s *ConcurrentTestSuite) TestUnpublishDuringAcquisitions() {
	s.container.BindPrototype("proto", func() interface{} { return &mock.GreeterService{Name: "proto"} })
	exp := export.NewExporter(s.registry, s.container, export.ExportConfig{
		TargetName: "proto",
		AutoExport: export.AutoExportInterfaces,
		Space:      s.space,
	})
	s.Require().NoError(exp.Publish())

	var wg sync.WaitGroup

	// Acquisitions racing a shutdown may fail with "not registered"; they
	// must never panic and unpublish must stay clean.
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			ctx := export.NewConsumerContext(context.Background(), fmt.Sprintf("consumer-%d", id))
			instance, err := s.registry.GetService("mock.Greeter", ctx)
			if err == nil {
				s.registry.UngetService("mock.Greeter", ctx, instance)
			}
		}(i)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.NoError(exp.Unpublish())
	}()

	wg.Wait()
	s.False(s.registry.Has("mock.Greeter"))
}

func (s *ConcurrentTestSuite) TestConcurrentUnpublish() {
	exp := export.NewExporter(s.registry, s.container, export.ExportConfig{
		Target:    &mock.GreeterService{Name: "g"},
		Contracts: []reflect.Type{export.Contract[mock.Greeter]()},
	})
	s.Require().NoError(exp.Publish())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.NoError(exp.Unpublish())
		}()
	}
	wg.Wait()
	s.Equal(0, s.registry.Count())
}

func TestConcurrentSuite(t *testing.T) {
	suite.Run(t, new(ConcurrentTestSuite))
}
