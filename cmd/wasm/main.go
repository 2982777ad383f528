//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"syscall/js"
	"time"

	"github.com/rs/zerolog"

	"github.com/ashishact/ramble/internal/store"
	"github.com/ashishact/ramble/pkg/config"
	"github.com/ashishact/ramble/pkg/kernel"
	"github.com/ashishact/ramble/pkg/pool"
)

// Version identifies this WASM bridge build.
const Version = "1.0.0"

var k *kernel.Kernel
var cancelRun context.CancelFunc

func main() {
	js.Global().Set("Ramble", js.ValueOf(map[string]interface{}{
		"version":          js.FuncOf(getVersion),
		"initialize":       js.FuncOf(initialize),
		"processText":      js.FuncOf(processText),
		"startSession":     js.FuncOf(startSession),
		"endSession":       js.FuncOf(endSession),
		"activateLens":     js.FuncOf(activateLens),
		"deactivateLens":   js.FuncOf(deactivateLens),
		"topOfMind":        js.FuncOf(topOfMind),
		"runDecay":         js.FuncOf(runDecay),
		"learnCorrection":  js.FuncOf(learnCorrection),
		"storeExport":      js.FuncOf(storeExport),
		"storeImport":      js.FuncOf(storeImport),
	}))

	fmt.Println("[Ramble] WASM ready v" + Version)
	select {}
}

func getVersion(this js.Value, args []js.Value) interface{} {
	return Version
}

// initialize: [dbPathJSON string] — opens the Kernel against an OPFS-
// backed SQLite path (or ":memory:" for an ephemeral session).
func initialize(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("requires 1 arg: dbPath")
	}
	dbPath := args[0].String()

	if k != nil {
		_ = k.Close()
		k = nil
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
	cfg := config.Default()

	var err error
	k, err = kernel.Open(dbPath, kernel.Options{Config: cfg, Log: log})
	if err != nil {
		return errorResult("open kernel: " + err.Error())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancelRun = cancel
	k.Start(ctx)

	return successResult("initialized")
}

// processText: [text string, sessionId string, speaker string, source string]
func processText(this js.Value, args []js.Value) interface{} {
	if err := requireKernel(); err != nil {
		return err
	}
	if len(args) < 4 {
		return errorResult("requires 4 args: text, sessionId, speaker, source")
	}

	result, err := k.ProcessText(args[0].String(), nowMs(), kernel.ProcessTextOptions{
		SessionID: args[1].String(),
		Speaker:   store.Speaker(args[2].String()),
		Source:    store.Source(args[3].String()),
	})
	if err != nil {
		return errorResult("processText: " + err.Error())
	}

	m := pool.GetMap()
	defer pool.PutMap(m)
	m["captured"] = result.Captured
	if result.Captured {
		m["lensId"] = result.LensID
	} else {
		m["unitId"] = result.Unit.ID
		if result.Correction != nil {
			m["correction"] = *result.Correction
		}
	}
	return marshalResult(m)
}

func startSession(this js.Value, args []js.Value) interface{} {
	if err := requireKernel(); err != nil {
		return err
	}
	sess, err := k.Session.StartSession(nowMs())
	if err != nil {
		return errorResult("startSession: " + err.Error())
	}
	return marshalResult(sess)
}

// endSession: [sessionId string]
func endSession(this js.Value, args []js.Value) interface{} {
	if err := requireKernel(); err != nil {
		return err
	}
	if len(args) < 1 {
		return errorResult("requires 1 arg: sessionId")
	}
	sess, err := k.Session.EndSession(args[0].String(), nowMs())
	if err != nil {
		return errorResult("endSession: " + err.Error())
	}
	return marshalResult(sess)
}

// activateLens: [lensId string]
func activateLens(this js.Value, args []js.Value) interface{} {
	if err := requireKernel(); err != nil {
		return err
	}
	if len(args) < 1 {
		return errorResult("requires 1 arg: lensId")
	}
	k.Lens.Activate(args[0].String())
	return successResult("activated")
}

func deactivateLens(this js.Value, args []js.Value) interface{} {
	if err := requireKernel(); err != nil {
		return err
	}
	k.Lens.Deactivate()
	return successResult("deactivated")
}

func topOfMind(this js.Value, args []js.Value) interface{} {
	if err := requireKernel(); err != nil {
		return err
	}
	view, err := k.TopOfMind(nowMs())
	if err != nil {
		return errorResult("topOfMind: " + err.Error())
	}
	return marshalResult(view)
}

func runDecay(this js.Value, args []js.Value) interface{} {
	if err := requireKernel(); err != nil {
		return err
	}
	result, err := k.RunDecay(nowMs())
	if err != nil {
		return errorResult("runDecay: " + err.Error())
	}
	return marshalResult(result)
}

// learnCorrection: [wrongText string, correctText string, sourceUnitId string (optional)]
func learnCorrection(this js.Value, args []js.Value) interface{} {
	if err := requireKernel(); err != nil {
		return err
	}
	if len(args) < 2 {
		return errorResult("requires 2+ args: wrongText, correctText, [sourceUnitId]")
	}
	var sourceUnitID *string
	if len(args) > 2 && args[2].String() != "" {
		v := args[2].String()
		sourceUnitID = &v
	}
	c, err := k.Correction.Learn(args[0].String(), args[1].String(), nowMs(), sourceUnitID)
	if err != nil {
		return errorResult("learnCorrection: " + err.Error())
	}
	return marshalResult(c)
}

// storeExport returns the full backup payload as a JSON string, for
// the host application to persist to OPFS (spec.md §6).
func storeExport(this js.Value, args []js.Value) interface{} {
	if err := requireKernel(); err != nil {
		return err
	}
	data, err := k.Store.Export()
	if err != nil {
		return errorResult("storeExport: " + err.Error())
	}
	return string(data)
}

// storeImport: [exportJSON string] — restores a prior backup
// (spec.md §6), replacing whatever is currently in this profile.
func storeImport(this js.Value, args []js.Value) interface{} {
	if err := requireKernel(); err != nil {
		return err
	}
	if len(args) < 1 {
		return errorResult("requires 1 arg: exportJSON")
	}
	if err := k.Store.Import([]byte(args[0].String())); err != nil {
		return errorResult("storeImport: " + err.Error())
	}
	return successResult("imported")
}

func requireKernel() interface{} {
	if k == nil {
		return errorResult("kernel not initialized: call initialize first")
	}
	return nil
}

func errorResult(msg string) interface{} {
	m := pool.GetMap()
	defer pool.PutMap(m)
	m["error"] = msg
	return marshalResult(m)
}

func successResult(msg string) interface{} {
	m := pool.GetMap()
	defer pool.PutMap(m)
	m["success"] = msg
	return marshalResult(m)
}

func marshalResult(v interface{}) interface{} {
	b, err := json.Marshal(v)
	if err != nil {
		return `{"error":"marshal failed: ` + err.Error() + `"}`
	}
	return string(b)
}

func nowMs() int64 {
	return time.Now().UnixMilli()
}
