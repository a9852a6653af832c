package app

import (
	"context"
	"fmt"
	"sync"

	cryptoDomain "github.com/allisson/piimask/internal/crypto/domain"
	cryptoService "github.com/allisson/piimask/internal/crypto/service"
	"github.com/allisson/piimask/internal/database"
	detectionService "github.com/allisson/piimask/internal/detection/service"
	maskingDomain "github.com/allisson/piimask/internal/masking/domain"
	maskingService "github.com/allisson/piimask/internal/masking/service"
	metadataService "github.com/allisson/piimask/internal/metadata/service"
	selectionDomain "github.com/allisson/piimask/internal/selection/domain"
	"github.com/allisson/piimask/internal/storage"
	taskHTTP "github.com/allisson/piimask/internal/task/http"
	taskRepository "github.com/allisson/piimask/internal/task/repository"
	taskUsecase "github.com/allisson/piimask/internal/task/usecase"
)

// taskComponents groups the masking pipeline and task delivery dependencies.
type taskComponents struct {
	blobStore   *storage.BlobStore
	kmsKeeper   cryptoDomain.KMSKeeper
	keyWrapper  cryptoService.KeyWrapper
	detector    *detectionService.Pipeline
	maskEngine  *maskingService.Engine
	recordCodec *metadataService.JSONCodec
	taskRepo    taskUsecase.TaskRepository
	taskUseCase taskUsecase.TaskUseCase
	taskHandler *taskHTTP.TaskHandler

	blobStoreInit   sync.Once
	keyWrapperInit  sync.Once
	detectorInit    sync.Once
	maskEngineInit  sync.Once
	recordCodecInit sync.Once
	taskRepoInit    sync.Once
	taskUseCaseInit sync.Once
	taskHandlerInit sync.Once
}

// BlobStore returns the artifact store opened from ARTIFACT_BUCKET_URL.
func (c *Container) BlobStore() (*storage.BlobStore, error) {
	var err error
	c.blobStoreInit.Do(func() {
		c.blobStore, err = storage.OpenBlobStore(context.Background(), c.config.ArtifactBucketURL)
		if err != nil {
			c.setInitError("blobStore", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("blobStore"); storedErr != nil {
		return nil, storedErr
	}
	return c.blobStore, nil
}

// KeyWrapper returns the KMS key wrapper, or nil when KMS_KEY_URI is not set.
func (c *Container) KeyWrapper() (cryptoService.KeyWrapper, error) {
	var err error
	c.keyWrapperInit.Do(func() {
		c.keyWrapper, err = c.initKeyWrapper()
		if err != nil {
			c.setInitError("keyWrapper", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("keyWrapper"); storedErr != nil {
		return nil, storedErr
	}
	return c.keyWrapper, nil
}

// Detector returns the built-in detector pipeline.
func (c *Container) Detector() (*detectionService.Pipeline, error) {
	var err error
	c.detectorInit.Do(func() {
		c.detector, err = c.initDetector()
		if err != nil {
			c.setInitError("detector", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("detector"); storedErr != nil {
		return nil, storedErr
	}
	return c.detector, nil
}

// MaskEngine returns the mask and restoration engine.
func (c *Container) MaskEngine() *maskingService.Engine {
	c.maskEngineInit.Do(func() {
		vault := cryptoService.NewVault(cryptoService.NewAEADManager())
		c.maskEngine = maskingService.NewEngine(
			maskingService.NewRegistry(
				maskingService.NewTextStrategy(),
				maskingService.NewImageStrategy(c.config.MaxImagePixels),
			),
			vault,
			c.config.MergeIoUThreshold,
			c.Logger(),
		)
	})
	return c.maskEngine
}

// RecordCodec returns the metadata file codec.
func (c *Container) RecordCodec() (*metadataService.JSONCodec, error) {
	var err error
	c.recordCodecInit.Do(func() {
		c.recordCodec, err = metadataService.NewJSONCodec()
		if err != nil {
			c.setInitError("recordCodec", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("recordCodec"); storedErr != nil {
		return nil, storedErr
	}
	return c.recordCodec, nil
}

// TaskRepository returns the task repository for the configured driver.
func (c *Container) TaskRepository() (taskUsecase.TaskRepository, error) {
	var err error
	c.taskRepoInit.Do(func() {
		c.taskRepo, err = c.initTaskRepository()
		if err != nil {
			c.setInitError("taskRepo", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("taskRepo"); storedErr != nil {
		return nil, storedErr
	}
	return c.taskRepo, nil
}

// TaskUseCase returns the task use case, decorated with metrics when enabled.
func (c *Container) TaskUseCase() (taskUsecase.TaskUseCase, error) {
	var err error
	c.taskUseCaseInit.Do(func() {
		c.taskUseCase, err = c.initTaskUseCase()
		if err != nil {
			c.setInitError("taskUseCase", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("taskUseCase"); storedErr != nil {
		return nil, storedErr
	}
	return c.taskUseCase, nil
}

// TaskHandler returns the task HTTP handler.
func (c *Container) TaskHandler() (*taskHTTP.TaskHandler, error) {
	var err error
	c.taskHandlerInit.Do(func() {
		var useCase taskUsecase.TaskUseCase
		useCase, err = c.TaskUseCase()
		if err != nil {
			err = fmt.Errorf("failed to get task use case for task handler: %w", err)
			c.setInitError("taskHandler", err)
			return
		}
		c.taskHandler = taskHTTP.NewTaskHandler(useCase, c.Logger())
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("taskHandler"); storedErr != nil {
		return nil, storedErr
	}
	return c.taskHandler, nil
}

// TaskConfig converts the masking settings of the application config.
func (c *Container) TaskConfig() (taskUsecase.Config, error) {
	alg, err := cryptoDomain.ParseAlgorithm(c.config.DefaultAlgorithm)
	if err != nil {
		return taskUsecase.Config{}, fmt.Errorf("invalid DEFAULT_ALGORITHM: %w", err)
	}
	style, err := maskingDomain.ParsePlaceholderStyle(c.config.PlaceholderStyle)
	if err != nil {
		return taskUsecase.Config{}, fmt.Errorf("invalid PLACEHOLDER_STYLE: %w", err)
	}

	selectable := selectionDomain.DefaultSelectable
	if len(c.config.SelectableCategories) > 0 {
		selectable = selectionDomain.ParseLabels(c.config.SelectableCategories)
	}
	mandatory := selectionDomain.DefaultMandatory
	if len(c.config.MandatoryCategories) > 0 {
		mandatory = selectionDomain.ParseLabels(c.config.MandatoryCategories)
	}

	return taskUsecase.Config{
		DefaultAlgorithm: alg,
		PlaceholderStyle: style,
		Selectable:       selectable,
		Mandatory:        mandatory,
		PreserveRegions:  c.config.PreserveRegions,
		MaxDocumentSize:  c.config.MaxDocumentSizeBytes,
	}, nil
}

func (c *Container) initKeyWrapper() (cryptoService.KeyWrapper, error) {
	if c.config.KMSKeyURI == "" {
		return nil, nil
	}
	keeper, err := cryptoService.NewKMSService().OpenKeeper(context.Background(), c.config.KMSKeyURI)
	if err != nil {
		return nil, err
	}
	c.kmsKeeper = keeper
	return cryptoService.NewKeyWrapper(keeper), nil
}

// initDetector chains the rule detector with the dictionary detector when
// DICTIONARY_PATH is set.
func (c *Container) initDetector() (*detectionService.Pipeline, error) {
	detectors := []detectionService.Detector{detectionService.NewRuleDetector(nil)}

	if c.config.DictionaryPath != "" {
		dictionary, err := detectionService.LoadDictionary(c.config.DictionaryPath)
		if err != nil {
			return nil, err
		}
		dictDetector, err := detectionService.NewDictionaryDetector(dictionary)
		if err != nil {
			return nil, err
		}
		detectors = append(detectors, dictDetector)
	}

	return detectionService.NewPipeline(detectors, c.config.DetectionTimeout, c.Logger()), nil
}

func (c *Container) initTaskRepository() (taskUsecase.TaskRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for task repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverMySQL:
		return taskRepository.NewMySQLTaskRepository(db), nil
	case database.DriverPostgres:
		return taskRepository.NewPostgreSQLTaskRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initTaskUseCase() (taskUsecase.TaskUseCase, error) {
	cfg, err := c.TaskConfig()
	if err != nil {
		return nil, err
	}

	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for task use case: %w", err)
	}

	taskRepo, err := c.TaskRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get task repository for task use case: %w", err)
	}

	outboxRepo, err := c.OutboxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox repository for task use case: %w", err)
	}

	store, err := c.BlobStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get blob store for task use case: %w", err)
	}

	codec, err := c.RecordCodec()
	if err != nil {
		return nil, fmt.Errorf("failed to get record codec for task use case: %w", err)
	}

	detector, err := c.Detector()
	if err != nil {
		return nil, fmt.Errorf("failed to get detector for task use case: %w", err)
	}

	keyWrapper, err := c.KeyWrapper()
	if err != nil {
		return nil, fmt.Errorf("failed to get key wrapper for task use case: %w", err)
	}

	baseUseCase := taskUsecase.NewTaskUseCase(
		cfg,
		txManager,
		taskRepo,
		outboxRepo,
		store,
		c.MaskEngine(),
		codec,
		detector,
		keyWrapper,
		c.Logger(),
	)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for task use case: %w", err)
		}
		return taskUsecase.NewTaskUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

func (c *Container) closeTaskComponents() []error {
	var errs []error
	if c.blobStore != nil {
		if err := c.blobStore.Close(); err != nil {
			errs = append(errs, fmt.Errorf("blob store close: %w", err))
		}
	}
	if c.kmsKeeper != nil {
		if err := c.kmsKeeper.Close(); err != nil {
			errs = append(errs, fmt.Errorf("kms keeper close: %w", err))
		}
	}
	return errs
}
