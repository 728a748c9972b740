// Command ltctool lists the MIDI ports and network interfaces djsync can
// use, and generates or checks LTC audio files.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"djsync/djlink"
	"djsync/midi"
	"djsync/timecode"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "ports":
		err = listPorts()
	case "interfaces":
		err = listInterfaces()
	case "generate":
		err = generateCmd(os.Args[2:])
	case "validate":
		err = validateCmd(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("LTC and device test tool")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  ports       - List all MIDI ports")
	fmt.Println("  interfaces  - List IPv4 interfaces usable for DJ Link")
	fmt.Println("  generate    - Write LTC audio to a WAV file")
	fmt.Println("  validate    - Decode the LTC in a WAV file")
	fmt.Println("")
	fmt.Println("Formats:")
	for _, f := range timecode.Formats {
		fmt.Printf("  %-11s %s\n", f, f.Description())
	}
}

func listPorts() error {
	fmt.Println("(waiting up to 3 seconds...)")
	ports, err := midi.ListPorts()
	if err == midi.ErrScanTimeout {
		fmt.Println("TIMEOUT! CoreMIDI is hung.")
		fmt.Println("Fix: sudo killall coreaudiod midiserver")
		return err
	}
	if err != nil {
		return err
	}
	defer midi.CloseDriver()

	fmt.Println("=== MIDI Input Ports ===")
	for i, p := range ports.Ins {
		fmt.Printf("  %d: %s\n", i, p)
	}
	fmt.Println("\n=== MIDI Output Ports ===")
	for i, p := range ports.Outs {
		fmt.Printf("  %d: %s\n", i, p)
	}
	return nil
}

func listInterfaces() error {
	ifaces, err := djlink.ScanInterfaces()
	if err != nil {
		return err
	}
	if len(ifaces) == 0 {
		fmt.Println("no IPv4 interfaces found")
		return nil
	}
	for _, i := range ifaces {
		fmt.Printf("  %-10s %-15s broadcast %s\n", i.Name, i.Address, i.Broadcast())
	}
	return nil
}

func generateCmd(args []string) error {
	fs := pflag.NewFlagSet("generate", pflag.ContinueOnError)
	var g genOptions
	format := fs.StringP("format", "f", string(timecode.FormatSMPTE30), "timecode format")
	start := fs.String("start", "", "start timecode HH:MM:SS:FF (default 00:00:00:00)")
	fs.Float64VarP(&g.Seconds, "seconds", "s", 10, "length in seconds")
	fs.IntVarP(&g.SampleRate, "rate", "r", timecode.DefaultSampleRate, "sample rate")
	fs.IntVarP(&g.BitDepth, "depth", "d", 16, "bits per sample, 8 or 16")
	fs.Float64Var(&g.Amplitude, "amplitude", 0.8, "peak level 0..1")
	out := fs.StringP("output", "o", "ltc.wav", "output WAV file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	g.Format = timecode.Format(*format)
	if !g.Format.Known() {
		return fmt.Errorf("unknown format %q", *format)
	}
	if *start != "" {
		fps, drop := g.Format.Rate()
		v, err := timecode.Parse(*start, fps)
		if err != nil {
			return err
		}
		v.DropFrame = drop
		g.Start = &v
	}

	res, err := generateWAV(*out, g)
	if err != nil {
		return err
	}
	fmt.Printf("wrote %d frames (%s to %s) to %s\n", res.Frames, res.First, res.Last, *out)
	return nil
}

func validateCmd(args []string) error {
	fs := pflag.NewFlagSet("validate", pflag.ContinueOnError)
	format := fs.StringP("format", "f", string(timecode.FormatSMPTE30), "timecode format the file was written with")
	verbose := fs.BoolP("verbose", "v", false, "print every frame")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: ltctool validate [flags] file.wav")
	}

	fps, _ := timecode.Format(*format).Rate()
	rep, err := validateWAV(fs.Arg(0), fps)
	if err != nil {
		return err
	}
	if *verbose {
		for _, v := range rep.Frames {
			fmt.Println(v)
		}
	}
	fmt.Printf("%d frames, %s to %s, %d discontinuities\n",
		len(rep.Frames), rep.Frames[0], rep.Frames[len(rep.Frames)-1], len(rep.Gaps))
	for _, gap := range rep.Gaps {
		fmt.Printf("  after %s expected %s got %s\n", gap.After, gap.Want, gap.Got)
	}
	return nil
}
