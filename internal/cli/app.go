package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/yolodolo42/txagent/internal/chain"
	"github.com/yolodolo42/txagent/internal/config"
	"github.com/yolodolo42/txagent/internal/exec"
	"github.com/yolodolo42/txagent/internal/journal"
	"github.com/yolodolo42/txagent/internal/llm"
	"github.com/yolodolo42/txagent/internal/logging"
	"github.com/yolodolo42/txagent/internal/ui"
	"github.com/yolodolo42/txagent/internal/wallet"
)

// state is shared by every command of one process. Config and logger are
// loaded in PersistentPreRunE; heavier pieces are built on demand.
type state struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	log     *logrus.Logger

	// test seams
	connector exec.Connector
	keys      wallet.KeySource
	provider  llm.Provider
	confirm   func(cmd *cobra.Command, title string, fields ...ui.Field) (bool, error)
	secret    func(prompt string) (string, error)
}

func newState() *state {
	return &state{v: config.NewViper(), confirm: confirmOnTerminal, secret: wallet.ReadHidden}
}

func (s *state) load(cmd *cobra.Command) error {
	cfg, err := config.Load(s.v, s.cfgFile)
	if err != nil {
		return err
	}
	log, err := logging.NewWithOutput(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	s.cfg, s.log = cfg, log
	return nil
}

func (s *state) registry() (*chain.Registry, error) {
	reg, err := chain.LoadRegistry(s.cfg.ChainsFile)
	if err != nil {
		return nil, fmt.Errorf("load chains from %s: %w", s.cfg.ChainsFile, err)
	}
	return reg, nil
}

func (s *state) openJournal() (*journal.Store, error) {
	if !s.cfg.Journal.Enabled {
		return nil, nil
	}
	return journal.Open(s.cfg.DataDir)
}

// executor wires registry, key source, policy and journal into an Executor.
// The returned func releases the bridge and the journal.
func (s *state) executor() (*exec.Executor, func(), error) {
	reg, err := s.registry()
	if err != nil {
		return nil, nil, err
	}
	policy, err := s.cfg.RecipientPolicy()
	if err != nil {
		return nil, nil, err
	}
	keys := s.keys
	if keys == nil {
		if keys, err = s.cfg.KeySource(); err != nil {
			return nil, nil, err
		}
	}
	store, err := s.openJournal()
	if err != nil {
		return nil, nil, err
	}

	opts := []exec.Option{
		exec.WithWorkers(s.cfg.Executor.Workers),
		exec.WithPolicy(policy),
		exec.WithLogger(s.log),
	}
	if store != nil {
		opts = append(opts, exec.WithJournal(store))
	}
	if s.connector != nil {
		opts = append(opts, exec.WithConnector(s.connector))
	}

	ex := exec.New(reg, keys, opts...)
	return ex, func() {
		ex.Close()
		if err := store.Close(); err != nil {
			s.log.WithError(err).Warn("close journal")
		}
	}, nil
}

// logToFile moves logs off the terminal while a full-screen UI owns it.
func (s *state) logToFile(name string) (io.Closer, error) {
	if err := os.MkdirAll(s.cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(s.cfg.DataDir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	s.log.SetOutput(f)
	return f, nil
}

func confirmOnTerminal(cmd *cobra.Command, title string, fields ...ui.Field) (bool, error) {
	return ui.Confirm(cmd.InOrStdin(), cmd.OutOrStdout(), title, fields...)
}
