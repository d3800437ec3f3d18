package utils

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func TestSafeJoinDir(t *testing.T) {
	joined, err := SafeJoinDir("/data/cityscapes", "leftImg8bit/train")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, joined, test.ShouldEqual, "/data/cityscapes/leftImg8bit/train")

	_, err = SafeJoinDir("/data/cityscapes", "../etc")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.png")
	dst := filepath.Join(dir, "nested", "deeper", "a.png")
	test.That(t, os.WriteFile(src, []byte("pixels"), 0o600), test.ShouldBeNil)

	test.That(t, FileExists(dst), test.ShouldBeFalse)
	n, err := CopyFile(src, dst)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, n, test.ShouldEqual, 6)
	test.That(t, FileExists(dst), test.ShouldBeTrue)
	got, err := os.ReadFile(dst)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(got), test.ShouldEqual, "pixels")

	_, err = CopyFile(filepath.Join(dir, "missing.png"), filepath.Join(dir, "other.png"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, FileExists(filepath.Join(dir, "other.png")), test.ShouldBeFalse)
}

func TestMathHelpers(t *testing.T) {
	test.That(t, FloorToMultiple(1024*1.5, 32), test.ShouldEqual, 1536)
	test.That(t, FloorToMultiple(100, 32), test.ShouldEqual, 96)
	test.That(t, FloorToMultiple(31, 32), test.ShouldEqual, 0)
	test.That(t, ClampUint8(-3), test.ShouldEqual, uint8(0))
	test.That(t, ClampUint8(300), test.ShouldEqual, uint8(255))
	test.That(t, ClampUint8(127.6), test.ShouldEqual, uint8(128))
	test.That(t, Square(3), test.ShouldEqual, 9.0)
}
