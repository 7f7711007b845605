package tools

const msvcHint = "run from an elevated shell, or install \"Desktop development with C++\" from the Visual Studio Installer and set MSVC_SKIP=1"

func installHints(tool, goos string) []string {
	switch tool {
	case "git":
		switch goos {
		case "darwin":
			return []string{"Install git via Xcode command line tools: xcode-select --install"}
		case "windows":
			return []string{"Install git via winget: winget install -e --id Git.Git"}
		default:
			return []string{"Install git with your distro package manager, e.g. sudo apt install git"}
		}
	case "java":
		switch goos {
		case "darwin":
			return []string{"Install a JDK via Homebrew: brew install openjdk@17"}
		case "windows":
			return []string{"Install a JDK via winget: winget install -e --id Microsoft.OpenJDK.17"}
		default:
			return []string{"Install a JDK with your distro package manager, e.g. sudo apt install openjdk-17-jdk"}
		}
	case "winget":
		if goos == "windows" {
			return []string{"Install App Installer from the Microsoft Store to get winget"}
		}
	case ComponentMSVC:
		if goos == "windows" {
			return []string{msvcHint}
		}
	}
	return nil
}

// InstallHints exposes per-OS install advice for doctor output.
func InstallHints(tool, goos string) []string {
	return installHints(tool, goos)
}

// NextSteps lists what to run once the tooling is in place.
func NextSteps(goos string) []string {
	steps := []string{
		"Open the project in VS Code; the Dart extension now uses .tooling/flutter",
		"Run: .tooling/flutter/bin/flutter doctor -v",
		"Build an Android app: .tooling/flutter/bin/flutter build apk",
	}
	if goos == "windows" {
		steps = append(steps,
			"Build for Windows desktop: .tooling\\flutter\\bin\\flutter build windows",
			"If Windows desktop is disabled, run: flutter config --enable-windows-desktop",
		)
	}
	return steps
}
