package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/shaikh58/arc"
	"github.com/shaikh58/arc/processor"
)

func main() {
	log := logrus.New()

	app := cli.App{
		Name:  "arc",
		Usage: "fixed-block file archive tool",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("debug") {
				log.SetLevel(logrus.DebugLevel)
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "create a new, empty archive",
				ArgsUsage: "<archive>",
				Action: func(c *cli.Context) error {
					a, err := arc.Create(c.Args().First())
					if err != nil {
						return err
					}
					defer a.Close()
					log.WithField("archive", a.Path()).Info("archive created")
					return nil
				},
			},
			{
				Name:      "add",
				Usage:     "add files to an archive",
				ArgsUsage: "<archive> <file>...",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "processor",
						Usage: "payload processor to apply (comp, lz4)",
					},
				},
				Action: func(c *cli.Context) error {
					return withArchive(c, log, func(a *arc.Archive) error {
						var proc processor.Processor
						if tag := c.String("processor"); tag != "" {
							var err error
							if proc, err = a.Registry().Get(tag); err != nil {
								return err
							}
						}
						for _, name := range c.Args().Tail() {
							if err := a.Add(name, proc); err != nil {
								return err
							}
						}
						return nil
					})
				},
			},
			{
				Name:      "extract",
				Usage:     "extract an archived file",
				ArgsUsage: "<archive> <file> <output>",
				Action: func(c *cli.Context) error {
					return withArchive(c, log, func(a *arc.Archive) error {
						return a.Extract(c.Args().Get(1), c.Args().Get(2))
					})
				},
			},
			{
				Name:      "remove",
				Usage:     "remove archived files",
				ArgsUsage: "<archive> <file>...",
				Action: func(c *cli.Context) error {
					return withArchive(c, log, func(a *arc.Archive) error {
						for _, name := range c.Args().Tail() {
							if err := a.Remove(name); err != nil {
								return err
							}
						}
						return nil
					})
				},
			},
			{
				Name:      "list",
				Usage:     "list archived files",
				ArgsUsage: "<archive>",
				Action: func(c *cli.Context) error {
					return withArchive(c, log, func(a *arc.Archive) error {
						_, err := a.List(os.Stdout)
						return err
					})
				},
			},
			{
				Name:      "dump",
				Usage:     "dump the state of every block",
				ArgsUsage: "<archive>",
				Action: func(c *cli.Context) error {
					return withArchive(c, log, func(a *arc.Archive) error {
						_, err := a.DebugDump(os.Stdout)
						return err
					})
				},
			},
			{
				Name:      "compact",
				Usage:     "rewrite the archive without tombstoned blocks",
				ArgsUsage: "<archive>",
				Action: func(c *cli.Context) error {
					return withArchive(c, log, func(a *arc.Archive) error {
						survivors, err := a.Compact()
						if err != nil {
							return err
						}
						log.WithField("blocks", survivors).Info("archive compacted")
						return nil
					})
				},
			},
			{
				Name:      "verify",
				Usage:     "audit the block and chain structure",
				ArgsUsage: "<archive>",
				Action: func(c *cli.Context) error {
					return withArchive(c, log, func(a *arc.Archive) error {
						if err := a.Verify(); err != nil {
							return err
						}
						log.Info("archive is consistent")
						return nil
					})
				},
			},
			{
				Name:      "checksum",
				Usage:     "print the stored payload digest of archived files",
				ArgsUsage: "<archive> <file>...",
				Action: func(c *cli.Context) error {
					return withArchive(c, log, func(a *arc.Archive) error {
						for _, name := range c.Args().Tail() {
							sum, err := a.PayloadChecksum(name)
							if err != nil {
								return err
							}
							log.WithFields(logrus.Fields{
								"file":   name,
								"digest": sum,
							}).Info("payload digest")
						}
						return nil
					})
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("command failed")
	}
}

// withArchive opens the archive named by the first argument, attaches the
// logging observer and guarantees the handle is released.
func withArchive(c *cli.Context, log *logrus.Logger, fn func(a *arc.Archive) error) error {
	a, err := arc.Open(c.Args().First())
	if err != nil {
		return err
	}
	defer a.Close()

	a.AddObserver(arc.ObserverFunc(func(action arc.Action, name string, ok bool) {
		entry := log.WithFields(logrus.Fields{
			"action":  action.String(),
			"name":    name,
			"archive": a.Path(),
		})
		if ok {
			entry.Debug("archive operation")
			return
		}
		entry.Warn("archive operation failed")
	}))

	return fn(a)
}
