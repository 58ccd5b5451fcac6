//go:build windows

package source

import (
	"context"
	"fmt"

	"golang.org/x/sys/windows/registry"
)

// userAssistGUIDs are the Count subkeys that track executable and shortcut
// launches.
var userAssistGUIDs = []string{
	"{CEBFF5CD-ACE2-4F4F-9178-9926F41749EA}", // executables
	"{F4E57C4B-2036-45F0-A9AB-443BCFE33D9F}", // shortcuts
}

const userAssistBase = `SOFTWARE\Microsoft\Windows\CurrentVersion\Explorer\UserAssist`

// LiveRegistry enumerates UserAssist values from HKCU. Available without
// elevation.
type LiveRegistry struct{}

func (LiveRegistry) Values(ctx context.Context) ([]RegistryValue, error) {
	var out []RegistryValue
	opened := 0

	for _, guid := range userAssistGUIDs {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		keyPath := userAssistBase + `\` + guid + `\Count`
		k, err := registry.OpenKey(registry.CURRENT_USER, keyPath, registry.READ)
		if err != nil {
			continue // GUID absent on this Windows version
		}
		opened++

		names, err := k.ReadValueNames(0)
		if err != nil {
			k.Close()
			continue
		}
		for _, name := range names {
			data, _, err := k.GetBinaryValue(name)
			if err != nil {
				continue
			}
			out = append(out, RegistryValue{Name: name, Data: data})
		}
		k.Close()
	}

	if opened == 0 {
		return nil, fmt.Errorf("%w: no UserAssist keys under HKCU", ErrUnavailable)
	}
	return out, nil
}
