package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/annel0/voxelgen/internal/chunkgen"
	"github.com/annel0/voxelgen/internal/config"
	"github.com/annel0/voxelgen/internal/logging"
	"github.com/annel0/voxelgen/internal/sampler"
	"github.com/annel0/voxelgen/internal/world/block"
)

const defaultServerAddr = "http://localhost:8088"

func main() {
	var (
		command    = flag.String("cmd", "inspect", "Command: gen, fetch, inspect, hex")
		configPath = flag.String("config", "", "YAML config for gen (or VOXELGEN_CONFIG)")
		server     = flag.String("server", defaultServerAddr, "REST server address for fetch")
		patchKey   = flag.String("patch", "0:0", "Patch key x:y")
		rng        = flag.String("range", "full", "Range: lower, upper, full")
		in         = flag.String("in", "", "Input blob file (default stdin)")
		out        = flag.String("out", "", "Output blob file (default stdout)")
		hexBytes   = flag.Int("n", 128, "Bytes to dump for hex")
	)
	flag.Parse()

	r, ok := chunkgen.ParseRange(*rng)
	if !ok {
		log.Fatalf("❌ Unknown range %q", *rng)
	}

	var err error
	switch *command {
	case "gen":
		err = generate(*configPath, *patchKey, r, *out)
	case "fetch":
		err = fetch(*server, *patchKey, r, *out)
	case "inspect":
		err = inspect(*in)
	case "hex":
		err = dump(*in, *hexBytes)
	default:
		err = fmt.Errorf("unknown command %q", *command)
	}
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
}

// generate запекает блоб локально, без сервера
func generate(configPath, patchKey string, r chunkgen.Range, out string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	env := cfg.World.Env()
	if err := env.Validate(); err != nil {
		return err
	}

	lands := block.DefaultLandTable()
	deps := chunkgen.Deps{Ground: sampler.NewPerlinGround(env.Seed, lands), Lands: lands}
	if cfg.World.Caves {
		deps.Caves = sampler.NewPerlinCaves(env.Seed)
	}
	if cfg.World.Items {
		deps.Items = sampler.NewScatterItems(env, deps.Ground, uint64(max(cfg.World.TreeDensity, 0)))
	}
	gen := chunkgen.NewGenerator(env, deps)

	start := time.Now()
	res, err := gen.GenerateChunks(context.Background(), chunkgen.ChunksInput{PatchKey: patchKey, Range: r},
		chunkgen.ChunksParams{Blob: true})
	if err != nil {
		return err
	}
	logging.Info("patch %s/%s: %d bytes in %s", patchKey, r, len(res.Blob), time.Since(start))
	return writeOut(out, res.Blob)
}

// fetch скачивает блоб с REST сервера
func fetch(server, patchKey string, r chunkgen.Range, out string) error {
	url := fmt.Sprintf("%s/api/chunks/%s?range=%s", server, patchKey, r)
	client := &http.Client{Timeout: time.Minute}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: %s", url, resp.Status)
	}
	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	logging.Info("ETag %s, %d bytes", resp.Header.Get("ETag"), len(blob))
	return writeOut(out, blob)
}

// inspect печатает содержимое блоба
func inspect(in string) error {
	blob, err := readIn(in)
	if err != nil {
		return err
	}
	stubs, err := chunkgen.DecodeBlob(blob)
	if err != nil {
		return err
	}

	fmt.Printf("%-12s %-28s %-6s %-8s %s\n", "CHUNK", "BOUNDS", "EMPTY", "PAYLOAD", "SOLID")
	for _, st := range stubs {
		solid := 0
		if c, err := st.Container(); err == nil && c.Initialized() {
			for _, w := range c.Data() {
				if !w.Empty() {
					solid++
				}
			}
		}
		fmt.Printf("%-12s %-28v %-6t %-8d %d\n", st.Key, st.Bounds, st.Empty, len(st.Payload), solid)
	}
	fmt.Printf("%d chunks, %d bytes compressed\n", len(stubs), len(blob))
	return nil
}

// dump печатает первые n байт блоба в hex
func dump(in string, n int) error {
	blob, err := readIn(in)
	if err != nil {
		return err
	}
	if n > 0 && n < len(blob) {
		blob = blob[:n]
	}
	fmt.Print(logging.HexDump(blob))
	return nil
}

func readIn(path string) ([]byte, error) {
	if path == "" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func writeOut(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
