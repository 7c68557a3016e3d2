// Command blockfsctl manages blockfs container files from the shell: format
// a fresh container, create/write/read/seek/delete files inside it, and
// list or inspect its directory. It replaces the teacher repo's disk-image
// CLI harness (cmd/main.go), built the same way around urfave/cli/v2.
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/gocarina/gocsv"
	"github.com/urfave/cli/v2"

	"github.com/trungnguyen10/blockfs"
	"github.com/trungnguyen10/blockfs/device"
)

func main() {
	app := &cli.App{
		Usage: "Manage blockfs container files",
		Commands: []*cli.Command{
			{
				Name:      "format",
				Usage:     "Create or wipe a container file",
				ArgsUsage: "PATH",
				Action:    formatContainer,
			},
			{
				Name:      "create",
				Usage:     "Create a new empty file inside the container",
				ArgsUsage: "PATH NAME",
				Action:    createFile,
			},
			{
				Name:      "write",
				Usage:     "Write text to a file, starting at offset 0",
				ArgsUsage: "PATH NAME TEXT",
				Action:    writeFile,
			},
			{
				Name:      "read",
				Usage:     "Print a file's contents to stdout",
				ArgsUsage: "PATH NAME",
				Action:    readFile,
			},
			{
				Name:      "seek",
				Usage:     "Seek a freshly opened handle to POSITION, growing the file if needed",
				ArgsUsage: "PATH NAME POSITION",
				Action:    seekFile,
			},
			{
				Name:      "rm",
				Usage:     "Delete a file from the container",
				ArgsUsage: "PATH NAME",
				Action:    removeFile,
			},
			{
				Name:      "ls",
				Usage:     "List files in the container",
				ArgsUsage: "PATH",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "csv", Usage: "emit CSV instead of a table"},
				},
				Action: listFiles,
			},
			{
				Name:      "info",
				Usage:     "Print the filesystem's fixed geometry",
				ArgsUsage: "PATH",
				Action:    printInfo,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("blockfsctl: %s", err.Error())
	}
}

func formatContainer(c *cli.Context) error {
	path := c.Args().Get(0)
	if path == "" {
		return cli.Exit("format requires PATH", 1)
	}

	dev, err := device.CreateFileDevice(path)
	if err != nil {
		return err
	}
	defer dev.Close()

	return blockfs.Format(dev)
}

func openContainer(path string) (*device.FileDevice, *blockfs.FS, error) {
	dev, err := device.OpenFileDevice(path)
	if err != nil {
		return nil, nil, err
	}
	return dev, blockfs.Mount(dev), nil
}

func createFile(c *cli.Context) error {
	path, name := c.Args().Get(0), c.Args().Get(1)
	if path == "" || name == "" {
		return cli.Exit("create requires PATH NAME", 1)
	}

	dev, fs, err := openContainer(path)
	if err != nil {
		return err
	}
	defer dev.Close()

	h, err := fs.CreateFile(name)
	if err != nil {
		return err
	}
	return h.Close()
}

func writeFile(c *cli.Context) error {
	path, name, text := c.Args().Get(0), c.Args().Get(1), c.Args().Get(2)
	if path == "" || name == "" {
		return cli.Exit("write requires PATH NAME TEXT", 1)
	}

	dev, fs, err := openContainer(path)
	if err != nil {
		return err
	}
	defer dev.Close()

	h, err := fs.OpenFile(name, blockfs.ReadWrite)
	if err != nil {
		return err
	}
	defer h.Close()

	n, werr := h.Write([]byte(text))
	fmt.Printf("wrote %d bytes\n", n)
	return werr
}

func readFile(c *cli.Context) error {
	path, name := c.Args().Get(0), c.Args().Get(1)
	if path == "" || name == "" {
		return cli.Exit("read requires PATH NAME", 1)
	}

	dev, fs, err := openContainer(path)
	if err != nil {
		return err
	}
	defer dev.Close()

	h, err := fs.OpenFile(name, blockfs.ReadOnly)
	if err != nil {
		return err
	}
	defer h.Close()

	length, err := h.Length()
	if err != nil {
		return err
	}

	buf := make([]byte, length)
	if _, err := h.Read(buf); err != nil {
		return err
	}
	os.Stdout.Write(buf)
	fmt.Println()
	return nil
}

func seekFile(c *cli.Context) error {
	path, name, posText := c.Args().Get(0), c.Args().Get(1), c.Args().Get(2)
	if path == "" || name == "" || posText == "" {
		return cli.Exit("seek requires PATH NAME POSITION", 1)
	}
	pos, err := strconv.ParseUint(posText, 10, 64)
	if err != nil {
		return cli.Exit("POSITION must be a non-negative integer", 1)
	}

	dev, fs, err := openContainer(path)
	if err != nil {
		return err
	}
	defer dev.Close()

	h, err := fs.OpenFile(name, blockfs.ReadWrite)
	if err != nil {
		return err
	}
	defer h.Close()

	return h.Seek(pos)
}

func removeFile(c *cli.Context) error {
	path, name := c.Args().Get(0), c.Args().Get(1)
	if path == "" || name == "" {
		return cli.Exit("rm requires PATH NAME", 1)
	}

	dev, fs, err := openContainer(path)
	if err != nil {
		return err
	}
	defer dev.Close()

	return fs.DeleteFile(name)
}

// dirListing is one row of `ls --csv` output, tagged for gocsv the same way
// disks/disks.go tags DiskGeometry for CSV (un)marshalling in the teacher
// repo.
type dirListing struct {
	ID   int    `csv:"id"`
	Name string `csv:"name"`
	Size uint32 `csv:"size"`
}

func listFiles(c *cli.Context) error {
	path := c.Args().Get(0)
	if path == "" {
		return cli.Exit("ls requires PATH", 1)
	}

	dev, fs, err := openContainer(path)
	if err != nil {
		return err
	}
	defer dev.Close()

	if err := fs.EnsureLoaded(); err != nil {
		return err
	}

	var rows []dirListing
	for id := 0; id < fs.Stat().MaxFiles; id++ {
		name, ok := fs.DebugDirectoryEntry(id)
		if !ok {
			continue
		}
		rows = append(rows, dirListing{ID: id, Name: name, Size: fs.DebugRecord(id).Size})
	}

	if c.Bool("csv") {
		text, err := gocsv.MarshalString(&rows)
		if err != nil {
			return err
		}
		fmt.Print(text)
		return nil
	}

	for _, row := range rows {
		fmt.Printf("%4d  %-60s  %d\n", row.ID, row.Name, row.Size)
	}
	return nil
}

func printInfo(c *cli.Context) error {
	path := c.Args().Get(0)
	if path == "" {
		return cli.Exit("info requires PATH", 1)
	}

	dev, fs, err := openContainer(path)
	if err != nil {
		return err
	}
	defer dev.Close()

	g := fs.Stat()
	fmt.Printf("block size:              %d\n", g.BlockSize)
	fmt.Printf("total blocks:            %d\n", g.TotalBlocks)
	fmt.Printf("max files:               %d\n", g.MaxFiles)
	fmt.Printf("max filename length:     %d\n", g.MaxFilenameLength)
	fmt.Printf("max file size:           %d\n", g.MaxFileSize)
	fmt.Printf("max data blocks/file:    %d\n", g.MaxDataBlocksPerFile)
	fmt.Printf("direct pointers/record:  %d\n", g.DirectPointers)
	return nil
}
