// Package testutil provides shared test helpers and the sample tuning
// document used across package tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// WriteTempFile writes data to name under a fresh temp dir and returns the
// full path.
func WriteTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

// SampleDocument returns a small but complete AWB Map tuning document in the
// vendor's dual-node encoding: a base boundary pair, a point-shaped entry, a
// region-shaped entry with a polygon, and a disabled placeholder slot that
// parsing is expected to drop.
func SampleDocument() []byte {
	return []byte(sampleDocument)
}

// SampleDocumentFile writes SampleDocument to a temp file and returns its path.
func SampleDocumentFile(t *testing.T) string {
	t.Helper()
	return WriteTempFile(t, "awb_map.xml", SampleDocument())
}

// Aliases present in SampleDocument, in document order.
const (
	SampleAliasBlueSky = "1_BlueSky_Bright"
	SampleAliasIndoor  = "2_Indoor_TL84"
)

const sampleDocument = `<?xml version="1.0" encoding="UTF-8"?>
<awb_tuning>
	<base_boundary0>
		<offset>
			<x>0.512</x>
			<y>0.463</y>
		</offset>
		<weight>1</weight>
	</base_boundary0>
	<base_boundary0>
		<AliasName>Base</AliasName>
		<RpG></RpG>
		<BpG></BpG>
		<TransStep>0</TransStep>
		<Enable>1</Enable>
	</base_boundary0>
	<offset_map01>
		<offset>
			<x>0.578</x>
			<y>0.312</y>
		</offset>
		<weight>8</weight>
		<range>
			<bv>
				<min>6</min>
				<max>12</max>
			</bv>
			<ir>
				<min>0</min>
				<max>0.4</max>
			</ir>
			<color_cct>
				<min>5500</min>
				<max>7500</max>
			</color_cct>
			<rg_ratio>
				<min>0.45</min>
				<max>0.62</max>
			</rg_ratio>
			<bg_ratio>
				<min>0.58</min>
				<max>0.81</max>
			</bg_ratio>
			<sat>
				<min>0</min>
				<max>0.3</max>
			</sat>
			<detect>1</detect>
		</range>
	</offset_map01>
	<offset_map01>
		<AliasName>1_BlueSky_Bright</AliasName>
		<RpG></RpG>
		<BpG></BpG>
		<TransStep>2</TransStep>
		<Enable>1</Enable>
	</offset_map01>
	<offset_map02>
		<offset>
			<x>0</x>
			<y>0</y>
		</offset>
		<weight>4</weight>
		<range>
			<bv>
				<min>-2</min>
				<max>5</max>
			</bv>
			<ir>
				<min>0.1</min>
				<max>0.9</max>
			</ir>
			<color_cct>
				<min>3800</min>
				<max>4300</max>
			</color_cct>
			<rg_ratio>
				<min>0.52</min>
				<max>0.7</max>
			</rg_ratio>
			<bg_ratio>
				<min>0.4</min>
				<max>0.55</max>
			</bg_ratio>
			<sat>
				<min>0</min>
				<max>0.5</max>
			</sat>
			<detect>0</detect>
		</range>
	</offset_map02>
	<offset_map02>
		<AliasName>2_Indoor_TL84</AliasName>
		<RpG>0.50 0.58 0.58 0.50</RpG>
		<BpG>0.40 0.40 0.48 0.48</BpG>
		<TransStep>1</TransStep>
		<Enable>1</Enable>
	</offset_map02>
	<offset_map03>
		<offset>
			<x>0</x>
			<y>0</y>
		</offset>
		<weight>0</weight>
	</offset_map03>
	<offset_map03>
		<AliasName></AliasName>
		<RpG></RpG>
		<BpG></BpG>
		<TransStep>0</TransStep>
		<Enable>0</Enable>
	</offset_map03>
</awb_tuning>
`
