package types

import (
	"fmt"

	rpmver "github.com/knqyf263/go-rpm-version"
)

// EVR renders the package's epoch:version-release string in the form the
// rpm version parser expects. An empty epoch is treated as 0.
func (p Package) EVR() string {
	epoch := p.Epoch
	if epoch == "" {
		epoch = "0"
	}
	return fmt.Sprintf("%s:%s-%s", epoch, p.Version, p.Release)
}

// ComparePackages compares the versions of two builds of the same package.
// It returns 0 when the versions are equal, a positive value when a is newer
// than b and a negative value when a is older. Comparing different package
// names or architectures is a caller error.
func ComparePackages(a, b Package) (int, error) {
	if a.Name != b.Name {
		return 0, fmt.Errorf("cannot compare versions of different packages: %s vs %s", a.Name, b.Name)
	}
	if a.Arch != b.Arch {
		return 0, fmt.Errorf("cannot compare versions of %s across architectures: %s vs %s", a.Name, a.Arch, b.Arch)
	}
	return rpmver.NewVersion(a.EVR()).Compare(rpmver.NewVersion(b.EVR())), nil
}
