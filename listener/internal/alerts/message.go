package alerts

import "fmt"

// Title is the popup title for name: "<NAME> Rising".
func Title(name string) string {
	return name + " Rising"
}

// PopupMessage is the popup body: "<NAME> Rising in m:ss".
func PopupMessage(name string, ttg int) string {
	return fmt.Sprintf("%s Rising in %s", name, FormatMMSS(ttg))
}

// VoiceText is the spoken sentence. Azimuth is deliberately not read out.
func VoiceText(name string, ttg int) string {
	return fmt.Sprintf("%s rising in %d seconds.", name, ttg)
}

// FormatMMSS renders seconds as m:ss, clamping negatives to zero.
func FormatMMSS(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
