// Command pcd-export converts recorded frames from a frame store into PCD
// files, one per frame, for inspection in PCL/CloudCompare.
//
// Usage:
//
//	pcd-export -db frames.db -session <uuid> -out ./clouds [-binary]
//	pcd-export -db frames.db -list
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/corten-vision/range.view/internal/pointcloud"
	"github.com/corten-vision/range.view/internal/rangeimage"
	"github.com/corten-vision/range.view/internal/store"
)

var (
	dbFile    = flag.String("db", "frames.db", "Path to the SQLite frame store")
	sessionID = flag.String("session", "", "Session to export")
	outDir    = flag.String("out", ".", "Output directory for .pcd files")
	binary    = flag.Bool("binary", false, "Write binary PCD instead of ascii")
	list      = flag.Bool("list", false, "List recorded sessions and exit")
)

func main() {
	flag.Parse()

	st, err := store.Open(*dbFile)
	if err != nil {
		log.Fatalf("opening store: %v", err)
	}
	defer st.Close()

	if *list {
		listSessions(st)
		return
	}

	if *sessionID == "" {
		log.Fatal("Error: -session flag is required (use -list to see sessions)")
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("creating output dir: %v", err)
	}

	format := pointcloud.PCDAscii
	if *binary {
		format = pointcloud.PCDBinary
	}

	exported := 0
	err = st.SessionFrames(*sessionID, func(c *rangeimage.Component) error {
		cloud, err := pointcloud.FromRangeImage(c)
		if err != nil {
			return err
		}
		name := filepath.Join(*outDir, fmt.Sprintf("frame_%06d.pcd", c.FrameID))
		f, err := os.Create(name)
		if err != nil {
			return err
		}
		if err := pointcloud.ToPCD(cloud, f, format); err != nil {
			f.Close()
			return fmt.Errorf("writing %s: %w", name, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		exported++
		return nil
	})
	if err != nil {
		log.Fatalf("export failed: %v", err)
	}
	log.Printf("Exported %d frames to %s", exported, *outDir)
}

func listSessions(st *store.Store) {
	sessions, err := st.Sessions()
	if err != nil {
		log.Fatalf("listing sessions: %v", err)
	}
	if len(sessions) == 0 {
		fmt.Println("no recorded sessions")
		return
	}
	for _, s := range sessions {
		ended := "running"
		if s.EndedAt != nil {
			ended = s.EndedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Printf("%s  source=%s frames=%d started=%s ended=%s %s\n",
			s.ID, s.Source, s.Frames,
			s.StartedAt.Format("2006-01-02 15:04:05"), ended, s.Notes)
	}
}
