package main

import (
	"encoding/hex"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"

	"kctlinit/pkg/kctl"
	"kctlinit/pkg/protocol"
	"kctlinit/pkg/protocol/spec"
)

var packetCommand = &cli.Command{
	Name:  "packet",
	Usage: "encode the group init packet and print it without touching the kernel",
	Flags: []cli.Flag{
		keySizeFlag,
		&cli.BoolFlag{
			Name:  "raw",
			Usage: "print only the hex dump",
		},
	},
	Action: packetCmd,
}

func packetCmd(c *cli.Context) error {
	cfg, done, err := setup(c)
	if err != nil {
		return err
	}
	defer done()

	pkt, err := protocol.NewGroupInit(cfg.KeySize)
	if err != nil {
		return cli.Exit(err.Error(), kctl.ExitUsage)
	}
	data, err := pkt.MarshalBinary()
	if err != nil {
		return cli.Exit(err.Error(), kctl.ExitUsage)
	}

	if c.Bool("raw") {
		fmt.Fprint(c.App.Writer, hex.Dump(data))
		return nil
	}

	keyLen, _ := protocol.DeclaredKeyLen(data)
	pterm.DefaultSection.WithWriter(c.App.Writer).Println("group init packet")
	err = render(c.App.Writer, pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData{
		{"offset", "field", "value"},
		{"0", "type", fmt.Sprintf("%d (%s)", data[0], spec.PacketType(data[0]))},
		{"1", "padding", hex.EncodeToString(data[1:4])},
		{"4", "conn_id", fmt.Sprint(pkt.ConnID)},
		{"8", "tlv type", fmt.Sprintf("%d (%s)", data[8], spec.TLVType(data[8]))},
		{"9", "tlv length", fmt.Sprintf("%d (be %s)", keyLen, hex.EncodeToString(data[9:13]))},
		{"13", "key", fmt.Sprintf("%d bytes", len(pkt.Key))},
		{"", "total", fmt.Sprintf("%d bytes", len(data))},
	}))
	if err != nil {
		return err
	}
	fmt.Fprint(c.App.Writer, hex.Dump(data[:protocol.HeaderSize]))
	return nil
}
