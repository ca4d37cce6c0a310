package main

import (
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/exec"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"github.com/ElafAlzoubi/offline-voice-to-text-application/audio"
	"github.com/ElafAlzoubi/offline-voice-to-text-application/beep"
	"github.com/ElafAlzoubi/offline-voice-to-text-application/doctor"
	"github.com/ElafAlzoubi/offline-voice-to-text-application/encoder"
	"github.com/ElafAlzoubi/offline-voice-to-text-application/hotkey"
	"github.com/ElafAlzoubi/offline-voice-to-text-application/inject"
	"github.com/ElafAlzoubi/offline-voice-to-text-application/log"
	"github.com/ElafAlzoubi/offline-voice-to-text-application/setup"
	"github.com/ElafAlzoubi/offline-voice-to-text-application/shutdown"
	"github.com/ElafAlzoubi/offline-voice-to-text-application/transcriber"
)

var version = "dev"

var (
	shutdownOnce  sync.Once
	activeHotkey  hotkey.Hotkey
	activeSession *Dictation
)

func gracefulShutdown() {
	shutdownOnce.Do(func() {
		if activeHotkey != nil {
			activeHotkey.Unregister()
		}
		if activeSession != nil {
			if n := activeSession.Count(); n > 0 {
				log.SessionEnd(n)
			}
		}
		log.Close()
		tuiMu.Lock()
		p := tuiProgram
		tuiMu.Unlock()
		if p != nil {
			p.Quit()
		}
		os.Exit(0)
	})
}

func run() {
	modelFlag := flag.String("model", "tiny.en", "Whisper model name (tiny.en, base.en, small.en, medium, large)")
	modelDirFlag := flag.String("modeldir", "", "Models directory (default: models/ next to the executable)")
	engineFlag := flag.String("engine", "", "Path to the whisper.cpp binary (default: whisper.cpp/main next to the executable)")
	threadsFlag := flag.Int("threads", transcriber.DefaultThreads, "Recognition thread count")
	beamFlag := flag.Int("beam", transcriber.DefaultBeamSize, "Decoding beam width (1 = greedy, fastest)")
	langFlag := flag.String("lang", transcriber.DefaultLanguage, "Language code for transcription")
	hotkeyFlag := flag.String("hotkey", "ctrl+space", "Push-to-talk chord, e.g. ctrl+space or ctrl+shift+d")
	maxDurFlag := flag.Duration("maxdur", audio.DefaultMaxDuration, "Hard recording ceiling per utterance")
	injectFlag := flag.String("inject", "type", "Text delivery: type (keystrokes) or copy (clipboard)")
	archiveFlag := flag.String("archive", "", "Save each utterance as FLAC under this directory")
	deviceFlag := flag.String("device", "", "Use named microphone device")
	setupFlag := flag.Bool("setup", false, "Select microphone device (otherwise uses system default)")
	logPathFlag := flag.String("logpath", "", "Log directory path (default: OS-specific location)")
	tuiFlag := flag.Bool("tui", true, "Run with terminal UI (false: detach to background)")
	doctorFlag := flag.Bool("doctor", false, "Run system diagnostics and exit")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	profileFlag := flag.String("profile", "", "Enable pprof server (e.g. localhost:6060)")
	testFlag := flag.Bool("test", false, "Test mode (headless, stdin-driven)")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("v2t %s\n", version)
		os.Exit(0)
	}

	// Resolve log directory early
	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	if *profileFlag != "" {
		go func() {
			fmt.Fprintf(os.Stderr, "pprof server listening on http://%s/debug/pprof/\n", *profileFlag)
			if err := http.ListenAndServe(*profileFlag, nil); err != nil {
				fmt.Fprintf(os.Stderr, "pprof server error: %v\n", err)
			}
		}()
	}

	chord, err := hotkey.ParseChord(*hotkeyFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	switch inject.Mode(*injectFlag) {
	case inject.ModeType, inject.ModeCopy:
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown inject mode %q (use type or copy)\n", *injectFlag)
		os.Exit(1)
	}

	// Engine and model locations, relocatable beside the binary
	paths, err := setup.DefaultPaths()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *modelDirFlag != "" {
		paths.ModelsDir = *modelDirFlag
	}
	enginePath := paths.Engine()
	if *engineFlag != "" {
		enginePath = *engineFlag
	} else if err := setup.CheckEngine(paths); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	modelPath, err := setup.EnsureModel(paths, *modelFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	whisperCfg := transcriber.Config{
		EnginePath: enginePath,
		ModelPath:  modelPath,
		Threads:    *threadsFlag,
		BeamSize:   *beamFlag,
		Language:   *langFlag,
	}

	if *doctorFlag {
		os.Exit(doctor.Run(doctor.Config{
			Chord:       chord,
			Transcriber: whisperCfg,
			InjectMode:  inject.Mode(*injectFlag),
		}))
	}

	// Resolve -setup into -device early (before daemonization)
	if *setupFlag && *deviceFlag == "" {
		ctx, err := audio.NewContext()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing audio: %v\n", err)
			os.Exit(1)
		}
		if dev, err := selectDevice(ctx); err == nil && dev != nil {
			*deviceFlag = dev.Name
		}
		ctx.Close()
	}

	// Daemonize in non-TUI mode: re-exec in background, return shell prompt
	if !*tuiFlag && !*testFlag && os.Getenv("_V2T_BG") == "" {
		args := os.Args[1:]
		if *deviceFlag != "" {
			args = append(args, "-device", *deviceFlag)
		}
		exe, _ := os.Executable()
		cmd := exec.Command(exe, args...)
		cmd.Env = append(os.Environ(), "_V2T_BG=1")
		devnull, _ := os.Open(os.DevNull)
		cmd.Stdin, cmd.Stdout, cmd.Stderr = devnull, devnull, devnull
		if err := cmd.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}

	trans := transcriber.NewWhisper(whisperCfg)

	injector, err := inject.New(inject.Mode(*injectFlag))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := injector.Prepare(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: text injection init failed: %v\n", err)
		fmt.Fprintln(os.Stderr, "Fix with: sudo chmod 660 /dev/uinput && sudo chgrp input /dev/uinput")
	}

	if *testFlag {
		args := flag.Args()
		if len(args) == 0 {
			fmt.Fprintln(os.Stderr, "Usage: v2t -test <wav-file>")
			os.Exit(1)
		}
		runTestMode(args[0], trans, *maxDurFlag, *archiveFlag)
		return
	}

	ctx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Fprintf(os.Stderr, "Error initializing audio context: %v\n", err)
		os.Exit(1)
	}
	defer ctx.Close()

	var selectedDevice *audio.DeviceInfo
	if *deviceFlag != "" {
		if devices, err := ctx.Devices(); err == nil {
			for i := range devices {
				if devices[i].Name == *deviceFlag {
					selectedDevice = &devices[i]
					break
				}
			}
		}
		if selectedDevice == nil {
			fmt.Fprintf(os.Stderr, "Warning: device %q not found, using system default\n", *deviceFlag)
		}
	}

	captureDevice, err := ctx.NewCapture(selectedDevice, audio.CaptureConfig{
		SampleRate: audio.SampleRate,
		Channels:   audio.Channels,
	})
	if err != nil {
		log.Errorf("capture device init error: %v", err)
		fmt.Fprintf(os.Stderr, "Error initializing capture device: %v\n", err)
		os.Exit(1)
	}
	defer captureDevice.Close()

	var sink EventSink = nopSink{}
	if *tuiFlag {
		tuiMu.Lock()
		tuiProgram = NewTUIProgram()
		tuiMu.Unlock()

		go func() {
			if _, err := tuiProgram.Run(); err != nil {
				log.Errorf("TUI error: %v", err)
				os.Exit(1)
			}
			gracefulShutdown()
		}()

		<-tuiReady
		sink = tuiSink{}
	}

	dict := NewDictation(captureDevice, trans, injector, sink, *maxDurFlag)
	if *archiveFlag != "" {
		dir := *archiveFlag
		dict.OnArchive(func(buf *audio.Buffer) {
			path, err := encoder.Archive(dir, buf.Samples)
			if err != nil {
				log.Warnf("archive failed: %v", err)
				return
			}
			log.Info("archived: " + path)
		})
	}
	activeSession = dict

	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)
	go func() {
		<-sigChan
		gracefulShutdown()
	}()

	go beep.Init()

	hk := hotkey.New(chord)
	if err := hk.Register(); err != nil {
		log.Errorf("hotkey register error: %v", err)
		fmt.Fprintf(os.Stderr, "Error registering hotkey: %v\n", err)
		os.Exit(1)
	}
	activeHotkey = hk
	defer hk.Unregister()

	tuiSend(ChordLineMsg{Text: chord.String()})
	tuiSend(DeviceLineMsg{Text: deviceLineText(selectedDevice)})
	if selectedDevice != nil && audio.IsBluetooth(selectedDevice.Name) {
		sink.Status("bluetooth mic in use, expect degraded capture quality")
	}

	log.SessionStart(setup.ModelFile(*modelFlag), *langFlag, captureDevice.DeviceName())

	for {
		<-hk.Keydown()
		log.Info("hotkey_down")
		// Drop a stale release left over from a press that arrived while
		// a session was still running.
		select {
		case <-hk.Keyup():
		default:
		}
		dict.TryStart(hk.Keyup())
	}
}

func deviceLineText(dev *audio.DeviceInfo) string {
	name := "system default"
	suffix := ""
	if dev != nil {
		name = dev.Name
		if audio.IsBluetooth(dev.Name) {
			suffix = " (BT!)"
		}
	}
	return "mic: " + name + suffix
}
