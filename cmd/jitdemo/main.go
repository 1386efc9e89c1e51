// Command jitdemo exercises package jit from the command line: build a
// small function live and call it once it is published, force a page
// bridge, or disassemble a hex string of encoded instructions. Grounded
// on cmd/bbcdisasm/main.go's urfave/cli/v2 structure.
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	cli "github.com/urfave/cli/v2"

	"jitbuf/asm"
	"jitbuf/jit"
)

func returnTwenty() error {
	buf, err := jit.New()
	if err != nil {
		return err
	}
	defer buf.Close()

	fn := buf.StartFunc()

	b := asm.NewBuilder(4)
	b.RexW().RegReg(asm.Xor, asm.AX, asm.AX)
	b.RexW().RegImm(asm.AddImm, asm.AX, 20)
	b.Ret()
	if err := b.Err(); err != nil {
		return err
	}
	if err := buf.PushInstrs(b.Stream()); err != nil {
		return err
	}

	fmt.Printf("result = %d\n", fn.Call0())
	return nil
}

func bridgeDemo(pageSize int, count int) error {
	buf, err := jit.NewSize(pageSize)
	if err != nil {
		return err
	}
	defer buf.Close()

	instrs := make([][]byte, 0, count)
	for i := 0; i < count; i++ {
		instrs = append(instrs, []byte{asm.OpNop, asm.OpNop})
	}
	if err := buf.PushInstrs(asm.NewSliceStream(instrs)); err != nil {
		return err
	}

	addrs := buf.ChainAddrs()
	fmt.Printf("pushed %d instructions across a %d-byte page size\n", count, pageSize)
	fmt.Printf("chain length: %d\n", len(addrs))
	for i, addr := range addrs {
		fmt.Printf("  page %d: 0x%x\n", i, addr)
	}
	return nil
}

func dumpHex(hexBytes string) error {
	hexBytes = strings.ReplaceAll(hexBytes, " ", "")
	raw, err := hex.DecodeString(hexBytes)
	if err != nil {
		return cli.Exit(fmt.Sprintf("could not parse hex: %v", err), 1)
	}

	lines := asm.Disassemble(asm.NewRawStream(raw))
	for _, line := range lines {
		fmt.Println(line)
	}
	return nil
}

func main() {
	app := cli.NewApp()
	app.Name = "jitdemo"
	app.Usage = "Exercise the jitbuf self-modifying code buffer"
	app.Action = func(c *cli.Context) error {
		cli.ShowAppHelp(c)
		return nil
	}
	app.Commands = []*cli.Command{
		{
			Name:  "return20",
			Usage: "Assemble and call a function that returns 20",
			Action: func(c *cli.Context) error {
				return returnTwenty()
			},
		},
		{
			Name:      "bridge",
			Usage:     "Push enough instructions to force a page bridge",
			ArgsUsage: "[pageSize] [count]",
			Action: func(c *cli.Context) error {
				pageSize := 64
				count := 64
				if c.Args().Len() >= 1 {
					v, err := strconv.Atoi(c.Args().Get(0))
					if err != nil {
						return cli.Exit("could not parse pageSize", 1)
					}
					pageSize = v
				}
				if c.Args().Len() >= 2 {
					v, err := strconv.Atoi(c.Args().Get(1))
					if err != nil {
						return cli.Exit("could not parse count", 1)
					}
					count = v
				}
				return bridgeDemo(pageSize, count)
			},
		},
		{
			Name:      "dump",
			Usage:     "Disassemble a hex string of raw instruction bytes",
			ArgsUsage: "hex-bytes",
			Action: func(c *cli.Context) error {
				if c.Args().Len() < 1 {
					return cli.Exit("insufficient arguments", 1)
				}
				return dumpHex(c.Args().First())
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
