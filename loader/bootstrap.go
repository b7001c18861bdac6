// Package loader owns the embedded application manifest and the boot-time
// step that turns it into the scheduler's initial task ring, the Go
// realization of spec.md's "application-ELF loader" external collaborator
// once it actually has images to load.
//
// Grounded on iansmith-feelings/src/boot/anticipation's pack-target-images-
// into-the-booting-image approach (there, a hand-rolled packer; here,
// Go's own go:embed) and on original_source/os/src/loader.rs, whose
// get_app_data/get_app_data_by_name this package's Bootstrap/ImageByName
// pair directly mirrors.
package loader

import (
	"embed"
	"io/fs"
	"strings"

	"rvkernel/kernel/kfmt"
	"rvkernel/syscall"
	"rvkernel/task"
)

// images is the embedded application directory cmd/mkimage populates with
// one <name>.bin file per user program before a real build. Only ".bin"
// entries are treated as application images; everything else (this
// directory's own MANIFEST.md) is skipped.
//
//go:embed apps
var images embed.FS

const appsDir = "apps"
const binSuffix = ".bin"

// Bootstrap spawns one task per embedded application image, in directory
// order, and registers each by name so sys_exec can find it later. Must run
// after task.SetTrampolineFrame and before task.RunLoop.
func Bootstrap() {
	syscall.ImageByName = lookupImage

	entries, err := fs.ReadDir(images, appsDir)
	if err != nil {
		kfmt.Printf("[loader] no application manifest: %s\n", err.Error())
		return
	}

	spawned := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, binSuffix) {
			continue
		}
		image, err := images.ReadFile(appsDir + "/" + name)
		if err != nil {
			kfmt.Printf("[loader] reading %s: %s\n", name, err.Error())
			continue
		}
		appName := strings.TrimSuffix(name, binSuffix)
		if _, err := task.Spawn(appName, image); err != nil {
			kfmt.Printf("[loader] spawning %s: %s\n", appName, err.Error())
			continue
		}
		spawned++
	}
	kfmt.Printf("[loader] spawned %d application task(s)\n", spawned)
}

func lookupImage(name string) ([]byte, bool) {
	data, err := images.ReadFile(appsDir + "/" + name + binSuffix)
	if err != nil {
		return nil, false
	}
	return data, true
}
