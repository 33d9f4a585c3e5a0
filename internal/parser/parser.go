package parser

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"pingprobe/internal/models"
)

// CreateTargets pairs every host with the given payload size.
func CreateTargets(hosts []string, size int) []models.SweepTarget {
	targets := make([]models.SweepTarget, 0, len(hosts))
	for _, h := range hosts {
		targets = append(targets, models.SweepTarget{Address: h, Size: size})
	}
	return targets
}

// ParseHosts parses host input from CIDR, file, or comma-separated list.
// Blank entries are dropped and duplicates are removed, keeping the first.
func ParseHosts(input string) ([]string, error) {
	targets, err := ParseTargets(input, 0)
	if err != nil {
		return nil, err
	}
	hosts := make([]string, len(targets))
	for i, t := range targets {
		hosts[i] = t.Address
	}
	return hosts, nil
}

// ParseTargets parses host input into sweep targets. A CSV file may carry a
// per-host size in its second column; every other target gets defaultSize.
func ParseTargets(input string, defaultSize int) ([]models.SweepTarget, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("empty host input")
	}

	var targets []models.SweepTarget
	switch {
	case isCIDR(input):
		hosts, err := parseCIDR(input)
		if err != nil {
			return nil, fmt.Errorf("failed to parse CIDR %s: %w", input, err)
		}
		targets = CreateTargets(hosts, defaultSize)
	case fileExists(input):
		var err error
		targets, err = parseTargetsFromFile(input, defaultSize)
		if err != nil {
			return nil, fmt.Errorf("failed to read hosts from %s: %w", input, err)
		}
	default:
		targets = CreateTargets(strings.Split(input, ","), defaultSize)
	}

	targets = dedupe(targets)
	if len(targets) == 0 {
		return nil, fmt.Errorf("no hosts found in %q", input)
	}
	return targets, nil
}

func dedupe(targets []models.SweepTarget) []models.SweepTarget {
	seen := make(map[string]bool, len(targets))
	unique := targets[:0]
	for _, t := range targets {
		t.Address = strings.TrimSpace(t.Address)
		if t.Address == "" || seen[t.Address] {
			continue
		}
		seen[t.Address] = true
		unique = append(unique, t)
	}
	return unique
}

func isCIDR(s string) bool {
	_, _, err := net.ParseCIDR(s)
	return err == nil
}

// parseCIDR expands an IPv4 CIDR block into a list of individual addresses.
func parseCIDR(cidr string) ([]string, error) {
	ip, ipnet, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, err
	}
	if ip.To4() == nil {
		return nil, fmt.Errorf("only IPv4 blocks are supported")
	}
	var ips []string
	for ip := ip.Mask(ipnet.Mask).To4(); ipnet.Contains(ip); func(ip net.IP) {
		for j := len(ip) - 1; j >= 0; j-- {
			ip[j]++
			if ip[j] > 0 {
				break
			}
		}
	}(ip) {
		ips = append(ips, ip.String())
		if ip.Equal(net.IPv4bcast) {
			break
		}
	}
	if len(ips) <= 2 { // Handle /32 and /31
		return ips, nil
	}
	return ips[1 : len(ips)-1], nil // Exclude network and broadcast
}

// parseTargetsFromFile reads hosts from a CSV or a plain text file. CSV files
// start with a header row; blank lines and # comments are skipped in text files.
func parseTargetsFromFile(filePath string, defaultSize int) ([]models.SweepTarget, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var targets []models.SweepTarget
	if strings.HasSuffix(strings.ToLower(filePath), ".csv") {
		r := csv.NewReader(file)
		r.FieldsPerRecord = -1
		header := true
		for {
			record, err := r.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, err
			}
			if header {
				header = false
				continue
			}
			if len(record) == 0 {
				continue
			}
			t := models.SweepTarget{Address: record[0], Size: defaultSize}
			if len(record) > 1 && strings.TrimSpace(record[1]) != "" {
				size, err := strconv.Atoi(strings.TrimSpace(record[1]))
				if err != nil || size < 0 {
					return nil, fmt.Errorf("invalid size %q for host %s", record[1], record[0])
				}
				t.Size = size
			}
			targets = append(targets, t)
		}
	} else {
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			targets = append(targets, models.SweepTarget{Address: line, Size: defaultSize})
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}
	return targets, nil
}

// fileExists checks if a file exists.
func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) || err != nil {
		return false
	}
	return !info.IsDir()
}
