package bootstrap

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/shoutzor/backend/internal/config"
	"github.com/shoutzor/backend/internal/console"
	"github.com/shoutzor/backend/internal/core/services"
	"github.com/shoutzor/backend/internal/infrastructure/acoustid"
	"github.com/shoutzor/backend/internal/infrastructure/db"
	"github.com/shoutzor/backend/internal/infrastructure/logger"
	"github.com/shoutzor/backend/internal/infrastructure/storage"
	"github.com/shoutzor/backend/internal/transport/http/handlers"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	taskPruneInterval = 10 * time.Minute
	taskRetention     = 24 * time.Hour
)

// Kernel holds everything both binaries need before the database exists:
// the live configuration, the env file, the console and the installer.
type Kernel struct {
	Config   *config.Config
	Logger   *logger.Logger
	Runtime  *config.Runtime
	Env      *config.DotenvStore
	Open     db.Opener
	Runner   *console.Runner
	Workflow *services.InstallWorkflow
	Cached   bool

	mu       sync.Mutex
	app      *handlers.AppServices
	database *gorm.DB
	queue    *services.UploadQueue
	stop     context.CancelFunc
	done     chan struct{}
}

// ResolveConfigPath falls back to the parent directory so the binaries also
// work when started from cmd/.
func ResolveConfigPath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "../" + path
	}
	return path
}

func New(configPath string) (*Kernel, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return NewWithConfig(cfg, config.NewRuntime(viper.GetViper()), log)
}

// NewWithConfig layers the config cache or the env file onto rt and wires the
// installer around it.
func NewWithConfig(cfg *config.Config, rt *config.Runtime, log *logger.Logger) (*Kernel, error) {
	env := config.NewDotenvStore(cfg.Paths.EnvFile)
	cached, err := config.Boot(rt, cfg.Paths, env)
	if err != nil {
		return nil, fmt.Errorf("failed to boot configuration: %w", err)
	}

	open := db.NewOpener(cfg.Database)
	runner := console.NewRunner(console.Dependencies{
		Runtime: rt,
		Paths:   cfg.Paths,
		Open:    open,
		Logger:  log.Named("console"),
	})
	workflow := services.NewInstallWorkflow(services.InstallWorkflowConfig{
		Runtime:    rt,
		Env:        env,
		Runner:     runner,
		Connection: db.NewConnectionTester(open),
		Logger:     log.Named("installer"),
	})

	return &Kernel{
		Config:   cfg,
		Logger:   log,
		Runtime:  rt,
		Env:      env,
		Open:     open,
		Runner:   runner,
		Workflow: workflow,
		Cached:   cached,
	}, nil
}

// AppServices opens the database and builds the upload and request services
// on first use. A failed attempt is retried on the next call.
func (k *Kernel) AppServices(ctx context.Context) (*handlers.AppServices, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.app != nil {
		return k.app, nil
	}

	database, err := k.Open(ctx, k.Runtime)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	disk, err := storage.New(k.Config.Storage)
	if err != nil {
		db.Close(database)
		return nil, err
	}

	log := k.Logger
	media := db.NewMediaRepository(database, log)
	events := services.NewEventDispatcher(log.Named("events"))
	tasks := services.NewTaskService()
	queue := services.NewUploadQueue(k.Config.Queue.Workers, k.Config.Queue.Buffer, log.Named("queue"))

	uploads := services.NewUploadService(services.UploadServiceConfig{
		Disk:    disk,
		Uploads: db.NewUploadRepository(database, log),
		Media:   media,
		Tasks:   tasks,
		Events:  events,
		Queue:   queue,
		Logger:  log.Named("uploads"),
	})

	lookup := acoustid.NewClient(acoustid.Config{
		APIKey:    k.Runtime.GetString("acoustid.api_key"),
		BaseURL:   k.Config.AcoustID.BaseURL,
		RateLimit: k.Config.AcoustID.RateLimit,
		Timeout:   k.Config.AcoustID.Timeout,
	}, log.Named("acoustid"))
	services.NewAcoustIDSubscriber(services.AcoustIDSubscriberConfig{
		Fingerprinter: acoustid.NewFpcalc(k.Config.AcoustID.FpcalcPath),
		Lookup:        lookup,
		Disk:          disk,
		Media:         media,
		Artists:       db.NewArtistRepository(database, log),
		Albums:        db.NewAlbumRepository(database, log),
		Events:        events,
		Logger:        log.Named("acoustid"),
	}).Register(events)

	workerCtx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})
	// The pruner stops with the queue so a drained queue ends the group.
	pruneCtx, stopPrune := context.WithCancel(workerCtx)
	var g errgroup.Group
	g.Go(func() error {
		defer stopPrune()
		return queue.Run(workerCtx, uploads.Process)
	})
	g.Go(func() error {
		pruneTasks(pruneCtx, tasks, log)
		return nil
	})
	go func() {
		defer close(done)
		if err := g.Wait(); err != nil {
			log.Errorw("upload_workers_stopped", "error", err)
		}
	}()
	log.Infow("app_services_ready", "backend", k.Runtime.GetString("database.default"), "storage", k.Config.Storage.Driver)

	k.app = &handlers.AppServices{
		Uploads:  uploads,
		Requests: services.NewRequestService(db.NewRequestRepository(database, log), media, events, log.Named("requests")),
		Tasks:    tasks,
	}
	k.database = database
	k.queue = queue
	k.stop = stop
	k.done = done
	return k.app, nil
}

// pruneTasks forgets finished upload tasks once nobody is likely to poll
// them anymore.
func pruneTasks(ctx context.Context, tasks *services.TaskService, log *logger.Logger) {
	ticker := time.NewTicker(taskPruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := tasks.Prune(taskRetention); n > 0 {
				log.Debugw("tasks_pruned", "count", n)
			}
		}
	}
}

// Shutdown drains the upload queue and closes the database, if they were
// ever started.
func (k *Kernel) Shutdown(ctx context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.app == nil {
		return nil
	}

	k.queue.Close()
	select {
	case <-k.done:
	case <-ctx.Done():
		k.stop()
		<-k.done
	}
	k.stop()

	err := db.Close(k.database)
	k.app = nil
	return err
}
