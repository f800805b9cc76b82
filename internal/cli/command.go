package cli

import (
	"errors"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"dotmac/internal/common"

	"github.com/spf13/cobra"
)

type CommandOpts struct {
	Name  string
	Flags Flags

	Use     string
	Aliases []string
	Short   string
	Long    string
	Args    cobra.PositionalArgs

	Run func(cmd *cobra.Command, opts *Command, args []string) error
}

// NewCommand wraps a cobra.Command with a service log loop and an
// ordered list of shutdown hooks that run once the command returns or
// the process is signalled
func NewCommand(opts CommandOpts) *Command {
	serviceLogs := make(chan common.ServiceLog, 64)
	common.StartServiceLogLoop(serviceLogs)
	output := &Command{
		name:        opts.Name,
		flags:       opts.Flags,
		serviceLogs: serviceLogs,
		stopped:     make(chan struct{}),
	}
	output.Command = &cobra.Command{
		Use:     opts.Use,
		Aliases: opts.Aliases,
		Short:   opts.Short,
		Long:    opts.Long,
		Args:    opts.Args,
		PreRun: func(cmd *cobra.Command, args []string) {
			opts.Flags.BindViper(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			err := opts.Run(cmd, output, args)
			output.Shutdown()
			return errors.Join(err, output.Error())
		},
	}
	opts.Flags.AddToCommand(output.Command)
	return output
}

// Command is the base of every dotmac subcommand
type Command struct {
	name        string
	flags       Flags
	serviceLogs chan common.ServiceLog

	shutdownMutex sync.Mutex
	shutdownIds   []string
	shutdowns     map[string]func() error
	shutdownOnce  sync.Once
	errs          []error
	stopped       chan struct{}

	*cobra.Command
}

// AddShutdownProcess registers a named hook; hooks run in reverse order
// of registration so later components close before what they depend on
func (cd *Command) AddShutdownProcess(id string, process func() error) {
	cd.shutdownMutex.Lock()
	defer cd.shutdownMutex.Unlock()
	if cd.shutdowns == nil {
		cd.shutdowns = map[string]func() error{}
	}
	if _, ok := cd.shutdowns[id]; ok {
		cd.serviceLogs <- common.ServiceLogf(common.LogLevelWarn, "shutdown process[%s] was overwritten", id)
	} else {
		cd.shutdownIds = append(cd.shutdownIds, id)
	}
	cd.shutdowns[id] = process
}

func (cd *Command) Error() error {
	cd.shutdownMutex.Lock()
	defer cd.shutdownMutex.Unlock()
	return errors.Join(cd.errs...)
}

// Get returns the underlying cobra.Command for registering with a parent
func (cd *Command) Get() *cobra.Command {
	return cd.Command
}

func (cd *Command) GetFlags() Flags {
	return cd.flags
}

// GetFullname returns the namespaced id of the command, used as the
// application name on database and broker connections
func (cd *Command) GetFullname() string {
	return strings.ToLower("dotmac." + cd.name)
}

func (cd *Command) GetServiceLogs() chan common.ServiceLog {
	return cd.serviceLogs
}

// WaitForSignal blocks until SIGINT or SIGTERM arrives or until Shutdown
// is called from elsewhere
func (cd *Command) WaitForSignal() {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)
	select {
	case sig := <-signals:
		cd.serviceLogs <- common.ServiceLogf(common.LogLevelInfo, "received signal[%s]", sig)
	case <-cd.stopped:
	}
}

// Shutdown runs every registered hook once
func (cd *Command) Shutdown() {
	cd.shutdownOnce.Do(func() {
		defer close(cd.stopped)
		cd.shutdownMutex.Lock()
		ids := append([]string{}, cd.shutdownIds...)
		cd.shutdownMutex.Unlock()
		if len(ids) == 0 {
			return
		}
		cd.serviceLogs <- common.ServiceLogf(common.LogLevelInfo, "running %v shutdown processes", len(ids))
		failed := 0
		for i := len(ids) - 1; i >= 0; i-- {
			id := ids[i]
			if err := cd.shutdowns[id](); err != nil {
				failed++
				cd.serviceLogs <- common.ServiceLogf(common.LogLevelError, "shutdown process[%s] failed: %s", id, err)
				cd.shutdownMutex.Lock()
				cd.errs = append(cd.errs, err)
				cd.shutdownMutex.Unlock()
				continue
			}
			cd.serviceLogs <- common.ServiceLogf(common.LogLevelDebug, "shutdown process[%s] done", id)
		}
		cd.serviceLogs <- common.ServiceLogf(common.LogLevelInfo, "shutdown complete (%v failed)", failed)
	})
}
