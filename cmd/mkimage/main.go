// Command mkimage is host-side tooling: it never runs on the target hart,
// only on the machine building the kernel. It has three jobs, one per
// subcommand, each grounded on a different tool in the retrieval pack:
//
//   - pack:    validates a directory of RV64 ELF binaries (debug/elf, the
//     same check task.New performs at runtime) and copies them into
//     loader/apps/*.bin for the next kernel build's go:embed to pick up.
//     Grounded on gopher-os-gopher-os/tools/redirects/redirects.go's
//     flag+filepath.Walk shape.
//   - banner:  renders a short text string into the 8bpp console banner
//     bitmap kfmt prints at boot, adapted from
//     gopher-os-gopher-os/tools/makelogo/makelogo.go (which converts an
//     input picture) to instead rasterize text via
//     golang.org/x/image/font/basicfont, so no separate image asset is
//     needed.
//   - monitor: puts the invoking terminal into raw mode (github.com/mattn/
//     go-tty, the way iansmith-feelings/samples does for its own host-side
//     console bridge) and relays a running QEMU instance's serial console
//     byte for byte until the connection closes or a kill-sequence is
//     typed.
package main

import (
	"debug/elf"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-tty"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/sys/unix"
)

func exit(err error) {
	fmt.Fprintf(os.Stderr, "[mkimage] error: %s\n", err.Error())
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	var err error
	switch os.Args[1] {
	case "pack":
		err = runPack(os.Args[2:])
	case "banner":
		err = runBanner(os.Args[2:])
	case "monitor":
		err = runMonitor(os.Args[2:])
	default:
		usage()
	}
	if err != nil {
		exit(err)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, "usage: mkimage <pack|banner|monitor> [options]\n")
	os.Exit(2)
}

// runPack validates every regular file under src as a 64-bit little-endian
// RV64 ELF executable and copies it to dst/<name>.bin, matching
// task.New/elf.Load's own acceptance check so a bad binary is caught at
// pack time rather than at boot.
func runPack(args []string) error {
	fs := flag.NewFlagSet("pack", flag.ExitOnError)
	src := fs.String("src", "", "directory of RV64 ELF binaries to pack")
	dst := fs.String("dst", "loader/apps", "destination directory (loader's embed root)")
	fs.Parse(args)

	if *src == "" {
		return errors.New("-src is required")
	}

	return filepath.Walk(*src, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := validateELF(data); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".bin"
		return writeRaw(filepath.Join(*dst, name), data)
	})
}

func validateELF(data []byte) error {
	f, err := elf.NewFile(newReaderAt(data))
	if err != nil {
		return err
	}
	defer f.Close()
	if f.Class != elf.ELFCLASS64 || f.Data != elf.ELFDATA2LSB || f.Machine != elf.EM_RISCV {
		return errors.New("not a 64-bit little-endian RISC-V executable")
	}
	return nil
}

// writeRaw opens dst with O_DIRECT-free flags via golang.org/x/sys/unix (the
// teacher's own file writes go through plain os.WriteFile; this tool
// instead takes the raw open/write path mewbak-unik's cmd/demo tooling
// uses, since it runs on the host build machine rather than inside the
// kernel and can afford the lower-level call).
func writeRaw(path string, data []byte) error {
	fd, err := unix.Open(path, unix.O_WRONLY|unix.O_CREAT|unix.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer unix.Close(fd)

	for len(data) > 0 {
		n, err := unix.Write(fd, data)
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

// runBanner rasterizes text into the 8bpp console-logo format
// tools/makelogo's palette/pixel-index encoding expects, using
// golang.org/x/image/font's face interface over basicfont.Face7x13 instead
// of decoding a picture file.
func runBanner(args []string) error {
	fs := flag.NewFlagSet("banner", flag.ExitOnError)
	text := fs.String("text", "rvkernel", "text to rasterize into the boot banner")
	varName := fs.String("var-name", "banner", "Go variable name for the generated logo")
	out := fs.String("out", "-", "output file, or - for stdout")
	fs.Parse(args)

	face := basicfont.Face7x13
	width := font.MeasureString(face, *text).Ceil() + 2
	height := face.Metrics().Height.Ceil() + 2

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{A: 0}}, image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{R: 0, G: 255, B: 0, A: 255}),
		Face: face,
		Dot:  fixed.P(1, face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(*text)

	src := genBannerSource(img, *varName)

	if *out == "-" {
		_, err := io.WriteString(os.Stdout, src)
		return err
	}
	return os.WriteFile(*out, []byte(src), 0o644)
}

func genBannerSource(img *image.RGBA, varName string) string {
	bounds := img.Bounds()
	var b strings.Builder
	fmt.Fprintf(&b, "package logo\n\nvar %s = Image{Width: %d, Height: %d, Data: []uint8{\n",
		varName, bounds.Dx(), bounds.Dy())
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			_, _, _, a := img.At(x, y).RGBA()
			if a == 0 {
				b.WriteString("0, ")
			} else {
				b.WriteString("1, ")
			}
		}
		b.WriteByte('\n')
	}
	b.WriteString("}}\n")
	return b.String()
}

// runMonitor connects to a running QEMU instance's serial console (exposed
// as a plain TCP socket by -serial tcp:... ,server) and relays it to/from
// the invoking terminal with the terminal switched into raw mode, so
// control characters reach the guest instead of being line-edited away.
func runMonitor(args []string) error {
	fs := flag.NewFlagSet("monitor", flag.ExitOnError)
	addr := fs.String("addr", "127.0.0.1:4444", "QEMU serial console TCP address")
	fs.Parse(args)

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	term, err := tty.OpenDevice("/dev/tty")
	if err != nil {
		return err
	}
	defer term.Close()
	restore := term.MustRaw()
	defer restore()

	done := make(chan error, 2)
	go func() { _, err := io.Copy(conn, term.Input()); done <- err }()
	go func() { _, err := io.Copy(term.Output(), conn); done <- err }()
	return <-done
}

type bytesReaderAt struct {
	data []byte
}

func (r *bytesReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(r.data)) {
		return 0, io.EOF
	}
	n := copy(p, r.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func newReaderAt(data []byte) io.ReaderAt { return &bytesReaderAt{data: data} }
