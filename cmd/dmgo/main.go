// Command dmgo is a CLI front end for the DMG emulator: point it at a ROM
// and either watch it run in a terminal window or drive it headlessly for a
// fixed number of frames (handy for conformance-test harnesses).
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli"

	"github.com/arledge/dmgo/dmg"
	"github.com/arledge/dmgo/dmg/cpu"
	"github.com/arledge/dmgo/dmg/frontend/terminal"
)

func main() {
	app := cli.NewApp()
	app.Name = "dmgo"
	app.Usage = "dmgo [options] <ROM file>"
	app.Description = "A Game Boy (DMG) emulator"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rom",
			Usage: "path to the ROM file",
		},
		cli.BoolFlag{
			Name:  "headless",
			Usage: "run without a terminal display",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "number of frames to run in headless mode",
			Value: 0,
		},
		cli.StringFlag{
			Name:  "tick-mode",
			Usage: "CPU step granularity: per-instruction or per-cycle",
			Value: "per-instruction",
		},
		cli.StringFlag{
			Name:  "save",
			Usage: "path to a battery-RAM save file to load at startup and write on exit",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		slog.Error("dmgo exited with an error", "error", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	romPath := c.String("rom")
	if romPath == "" {
		if c.NArg() > 0 {
			romPath = c.Args().Get(0)
		} else {
			cli.ShowAppHelp(c)
			return errors.New("no ROM path provided")
		}
	}

	emu, err := dmg.NewWithFile(romPath)
	if err != nil {
		return fmt.Errorf("loading rom: %w", err)
	}

	tickMode, err := parseTickMode(c.String("tick-mode"))
	if err != nil {
		return err
	}
	emu.SetTickMode(tickMode)

	if savePath := c.String("save"); savePath != "" {
		if err := loadSave(emu, savePath); err != nil {
			slog.Warn("could not load save file", "path", savePath, "error", err)
		}
		defer func() {
			if err := writeSave(emu, savePath); err != nil {
				slog.Error("could not write save file", "path", savePath, "error", err)
			}
		}()
	}

	if c.Bool("headless") {
		frames := c.Int("frames")
		if frames <= 0 {
			return errors.New("--headless requires --frames with a positive value")
		}
		return runHeadless(emu, frames)
	}

	renderer, err := terminal.New(emu)
	if err != nil {
		return err
	}
	return renderer.Run()
}

func runHeadless(emu *dmg.Emulator, frames int) error {
	for i := 0; i < frames; i++ {
		emu.RunUntilFrame()
		if (i+1)%60 == 0 {
			slog.Info("headless progress", "frame", i+1, "total", frames)
		}
	}
	slog.Info("headless run complete", "frames", frames, "instructions", emu.InstructionCount())
	return nil
}

func parseTickMode(s string) (cpu.TickMode, error) {
	switch s {
	case "per-instruction", "":
		return cpu.PerInstruction, nil
	case "per-cycle":
		return cpu.PerCycle, nil
	default:
		return 0, fmt.Errorf("unknown tick mode %q (want per-instruction or per-cycle)", s)
	}
}

func loadSave(emu *dmg.Emulator, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	battery, ok := emu.GetMMU().BatteryBackedRAM()
	if !ok {
		return errors.New("cartridge has no battery-backed RAM")
	}
	battery.Load(data)
	return nil
}

func writeSave(emu *dmg.Emulator, path string) error {
	battery, ok := emu.GetMMU().BatteryBackedRAM()
	if !ok || !battery.Dirty() {
		return nil
	}
	if err := os.WriteFile(path, battery.Snapshot(), 0o644); err != nil {
		return err
	}
	battery.ClearDirty()
	return nil
}
