// Command whisper-go transcribes a single audio file with the same
// whisper.cpp backend the coordinator uses for transcribe jobs, for
// offline testing of a model file against a sample recording.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strings"

	"github.com/amelia-run/amelia/internal/transcribe"
)

func main() {
	var modelPath, language string
	flag.StringVar(&modelPath, "model", "", "Path to the whisper ggml model file")
	flag.StringVar(&language, "language", "", "Language hint (ISO 639-1), empty for auto-detect")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 || modelPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -model <model_path> [-language <code>] <audio_file>\n", os.Args[0])
		os.Exit(1)
	}
	audioPath := args[0]

	if err := mustExist(modelPath, "model file"); err != nil {
		log.Fatal(err)
	}
	if err := mustExist(audioPath, "audio file"); err != nil {
		log.Fatal(err)
	}

	asr, err := transcribe.NewWhisperASR(modelPath)
	if err != nil {
		log.Fatalf("load model: %v", err)
	}
	defer asr.Close()

	transcript, err := asr.Transcribe(context.Background(), audioPath, language)
	if err != nil {
		log.Fatalf("transcribe: %v", err)
	}

	fmt.Printf("detected language: %s\n", transcript.DetectedLanguage)
	fmt.Println(strings.Repeat("-", 60))
	for _, seg := range transcript.Segments {
		fmt.Printf("[%6.2fs -> %6.2fs] %s\n", seg.Start, seg.End, seg.Text)
	}
}

func mustExist(path, label string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s does not exist: %s", label, path)
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	return nil
}
