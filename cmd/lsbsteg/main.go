// Command lsbsteg hides a text message in a lossless image and reads it back.
//
//	lsbsteg [-config FILE] encode -in SRC -out DST [-m MESSAGE] [-format png|bmp|tiff]
//	lsbsteg [-config FILE] decode -in SRC
//	lsbsteg [-config FILE] capacity -in SRC
//
// Without -m, encode reads the message from stdin, prompting without echo
// when stdin is a terminal.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/tuomas-lb/lsbsteg/internal/config"
	"github.com/tuomas-lb/lsbsteg/pkg/lsbsteg"
)

const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("lsbsteg", flag.ContinueOnError)
	global.SetOutput(stderr)
	configPath := global.String("config", "", "YAML configuration file")
	global.Usage = func() {
		fmt.Fprintln(stderr, "usage: lsbsteg [-config FILE] <encode|decode|capacity> [flags]")
		global.PrintDefaults()
	}
	if err := global.Parse(args); err != nil {
		return exitUsage
	}
	if global.NArg() == 0 {
		global.Usage()
		return exitUsage
	}

	conf := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "lsbsteg: %v\n", err)
			return exitUsage
		}
		conf = loaded
	}
	logger := conf.NewLogger(stderr)

	cmd, rest := global.Arg(0), global.Args()[1:]
	switch cmd {
	case "encode":
		return runEncode(rest, conf, logger, stdin, stdout, stderr)
	case "decode":
		return runDecode(rest, logger, stdout, stderr)
	case "capacity":
		return runCapacity(rest, logger, stdout, stderr)
	default:
		fmt.Fprintf(stderr, "lsbsteg: unknown command %q\n", cmd)
		global.Usage()
		return exitUsage
	}
}

func runEncode(args []string, conf *config.Config, logger *slog.Logger, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("encode", flag.ContinueOnError)
	fs.SetOutput(stderr)
	in := fs.String("in", "", "source image")
	out := fs.String("out", "", "destination image (png, bmp or tiff)")
	format := fs.String("format", conf.OutputFormat, "output format, overrides the destination extension")
	message := fs.String("m", "", "message to hide; read from stdin when omitted")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *in == "" || *out == "" {
		fmt.Fprintln(stderr, "lsbsteg encode: -in and -out are required")
		fs.PrintDefaults()
		return exitUsage
	}

	msg := *message
	if !flagSet(fs, "m") {
		var err error
		if msg, err = readMessage(stdin, stderr); err != nil {
			logger.Error("failed to read message", "error", err)
			return exitFail
		}
	}

	level, err := conf.CompressionLevel()
	if err != nil {
		fmt.Fprintf(stderr, "lsbsteg: %v\n", err)
		return exitUsage
	}
	opts := &lsbsteg.Options{
		OutputFormat:   *format,
		PNGCompression: level,
		Logger:         logger,
	}
	if err := lsbsteg.EmbedMessageFile(*in, *out, msg, opts); err != nil {
		logger.Error("encode failed", "in", *in, "out", *out, "error", err)
		if errors.Is(err, lsbsteg.ErrCapacityExceeded) {
			logger.Info("message needs more pixels", "required_bits", lsbsteg.RequiredBits(msg))
		}
		return exitFail
	}
	fmt.Fprintf(stdout, "Message encoded and saved to %s\n", *out)
	return exitOK
}

func runDecode(args []string, logger *slog.Logger, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	fs.SetOutput(stderr)
	in := fs.String("in", "", "image carrying a message")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *in == "" {
		fmt.Fprintln(stderr, "lsbsteg decode: -in is required")
		fs.PrintDefaults()
		return exitUsage
	}

	msg, err := lsbsteg.ExtractMessageFile(*in, &lsbsteg.Options{Logger: logger})
	if err != nil {
		logger.Error("decode failed", "in", *in, "error", err)
		return exitFail
	}
	fmt.Fprintln(stdout, msg)
	return exitOK
}

func runCapacity(args []string, logger *slog.Logger, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("capacity", flag.ContinueOnError)
	fs.SetOutput(stderr)
	in := fs.String("in", "", "image to measure")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *in == "" {
		fmt.Fprintln(stderr, "lsbsteg capacity: -in is required")
		return exitUsage
	}

	info, err := lsbsteg.GetCapacityInfo(*in)
	if err != nil {
		logger.Error("capacity failed", "in", *in, "error", err)
		return exitFail
	}
	fmt.Fprintf(stdout, "dimensions:        %dx%d (%d pixels)\n", info.Width, info.Height, info.Pixels)
	fmt.Fprintf(stdout, "capacity bits:     %d\n", info.CapacityBits)
	fmt.Fprintf(stdout, "max message bytes: %d\n", info.MaxMessageBytes)
	if !info.Usable {
		fmt.Fprintln(stdout, "image is too small to hold even an empty message")
	}
	return exitOK
}

// readMessage reads the message from stdin. On a terminal the input is not
// echoed. A single trailing newline is dropped.
func readMessage(stdin io.Reader, stderr io.Writer) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(stderr, "Message: ")
		data, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(stderr)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", err
	}
	msg := string(data)
	if strings.HasSuffix(msg, "\r\n") {
		return strings.TrimSuffix(msg, "\r\n"), nil
	}
	return strings.TrimSuffix(msg, "\n"), nil
}

func flagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
