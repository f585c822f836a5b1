// Command genvapid prints a fresh VAPID key pair for the push notification
// channel. Run once and put the keys in the server's environment.
package main

import (
	"fmt"
	"log"

	"github.com/SherClockHolmes/webpush-go"
)

func main() {
	privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		log.Fatal("Failed to generate VAPID keys: ", err)
	}

	fmt.Println("Add these to your .env file:")
	fmt.Println("VAPID_PUBLIC_KEY=" + publicKey)
	fmt.Println("VAPID_PRIVATE_KEY=" + privateKey)
	fmt.Println("VAPID_SUBSCRIBER=mailto:you@example.com")
}
