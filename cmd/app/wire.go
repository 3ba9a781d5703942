//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/smallsteps/growthscreen/internal/bootstrap"
	"github.com/smallsteps/growthscreen/internal/domain/screening"
	"github.com/smallsteps/growthscreen/internal/infra/config"
	"github.com/smallsteps/growthscreen/internal/infra/inference"
	httpiface "github.com/smallsteps/growthscreen/internal/interface/http"
	"github.com/smallsteps/growthscreen/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideScreeningConfig,
		provideStandards,
		provideClassifier,
		provideEstimator,
		provideInferenceClient,
		provideHealthProbe,
		provideResultCache,
		provideOfflineQueue,
		provideScanArchive,
		screening.NewService,
		screening.NewBatchCoordinator,
		wire.Bind(new(screening.InferenceClient), new(*inference.Client)),
		wire.Bind(new(screening.ConnectivityProbe), new(*inference.HealthProbe)),
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
