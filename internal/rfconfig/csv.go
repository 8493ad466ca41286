package rfconfig

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

// LoadRFConfig parses config.csv: vm_id(hex), vm_port(dec), ct_id(dec),
// dp_id(hex), dp_port(dec).
func LoadRFConfig(path string) (*RFConfig, error) {
	const layout = "vm_id(hex),vm_port(dec),ct_id(dec),dp_id(hex),dp_port(dec)"

	var entries []*RFConfigEntry
	err := readCSV(path, layout, 5, func(cols []string) error {
		vmID, err := parseHex(cols[0])
		if err != nil {
			return err
		}
		vmPort, err := parseDec(cols[1])
		if err != nil {
			return err
		}
		ctID, err := parseDec(cols[2])
		if err != nil {
			return err
		}
		dpID, err := parseHex(cols[3])
		if err != nil {
			return err
		}
		dpPort, err := parseDec(cols[4])
		if err != nil {
			return err
		}

		entries = append(entries, &RFConfigEntry{
			VMID:   vmID,
			VMPort: uint32(vmPort),
			CTID:   ctID,
			DPID:   dpID,
			DPPort: uint32(dpPort),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load %s (expected columns: %s): %w", path, layout, err)
	}

	return NewRFConfig(entries), nil
}

// LoadRFISLConf parses islconf.csv: vm_id(hex), ct_id(dec), dp_id(hex),
// dp_port(dec), eth_addr, rem_ct(dec), rem_id(hex), rem_port(dec),
// rem_eth_addr.
func LoadRFISLConf(path string) (*RFISLConf, error) {
	const layout = "vm_id(hex),ct_id(dec),dp_id(hex),dp_port(dec),eth_addr,rem_ct(dec),rem_id(hex),rem_port(dec),rem_eth_addr"

	var entries []*RFISLConfEntry
	err := readCSV(path, layout, 9, func(cols []string) error {
		vmID, err := parseHex(cols[0])
		if err != nil {
			return err
		}
		ctID, err := parseDec(cols[1])
		if err != nil {
			return err
		}
		dpID, err := parseHex(cols[2])
		if err != nil {
			return err
		}
		dpPort, err := parseDec(cols[3])
		if err != nil {
			return err
		}
		eth, err := parseMAC(cols[4])
		if err != nil {
			return err
		}
		remCT, err := parseDec(cols[5])
		if err != nil {
			return err
		}
		remID, err := parseHex(cols[6])
		if err != nil {
			return err
		}
		remPort, err := parseDec(cols[7])
		if err != nil {
			return err
		}
		remEth, err := parseMAC(cols[8])
		if err != nil {
			return err
		}

		entries = append(entries, &RFISLConfEntry{
			VMID:    vmID,
			CTID:    ctID,
			DPID:    dpID,
			DPPort:  uint32(dpPort),
			EthAddr: eth,
			RemCT:   remCT,
			RemID:   remID,
			RemPort: uint32(remPort),
			RemEth:  remEth,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load %s (expected columns: %s): %w", path, layout, err)
	}

	return NewRFISLConf(entries), nil
}

// LoadRFFPConf parses fastpaths.csv: ct_id(dec), dp_id(hex), dp_port(dec),
// dp0_port(dec).
func LoadRFFPConf(path string) (*RFFPConf, error) {
	const layout = "ct_id(dec),dp_id(hex),dp_port(dec),dp0_port(dec)"

	var entries []*RFFPConfEntry
	err := readCSV(path, layout, 4, func(cols []string) error {
		ctID, err := parseDec(cols[0])
		if err != nil {
			return err
		}
		dpID, err := parseHex(cols[1])
		if err != nil {
			return err
		}
		dpPort, err := parseDec(cols[2])
		if err != nil {
			return err
		}
		dp0Port, err := parseDec(cols[3])
		if err != nil {
			return err
		}

		entries = append(entries, &RFFPConfEntry{
			CTID:    ctID,
			DPID:    dpID,
			DPPort:  uint32(dpPort),
			DP0Port: uint32(dp0Port),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load %s (expected columns: %s): %w", path, layout, err)
	}

	return NewRFFPConf(entries), nil
}

// readCSV scans path line by line, skipping the header, stripping
// "#"-comments and blank lines, and calling handle with the trimmed,
// comma-split columns of every remaining line. A malformed line (wrong
// column count) aborts with an error naming the expected layout.
func readCSV(path, layout string, numCols int, handle func(cols []string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		if lineNo == 1 {
			// Header line, ignored.
			continue
		}

		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		cols := strings.Split(line, ",")
		for i := range cols {
			cols[i] = strings.TrimSpace(cols[i])
		}
		if len(cols) != numCols {
			return fmt.Errorf("line %d: expected %d columns (%s), got %d", lineNo, numCols, layout, len(cols))
		}

		if err := handle(cols); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
	}

	return scanner.Err()
}

func parseHex(s string) (uint64, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return strconv.ParseUint(s, 16, 64)
}

func parseDec(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}

func parseMAC(s string) ([6]byte, error) {
	var out [6]byte
	hw, err := net.ParseMAC(s)
	if err != nil {
		return out, err
	}
	copy(out[:], hw)
	return out, nil
}
