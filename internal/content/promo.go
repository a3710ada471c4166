package content

// PromoCaptions rotate on branded promo video posts.
var PromoCaptions = []string{
	"🏖️ Escape to paradise at Pensacola Beach! Our luxury vacation rentals offer stunning beachfront views and unforgettable experiences. Book your dream getaway with MiCasa.Rentals today! #PensacolaBeach #VacationRental #BeachLife #MiCasaRentals",
	"🌊 Wake up to ocean views every morning! MiCasa.Rentals provides fully furnished beachfront accommodations perfect for families, couples, and groups. Experience the best of Pensacola Beach! #BeachVacation #PensacolaBeach #MiCasaRentals #OceanView",
	"✨ Your perfect beach vacation awaits! From pristine white sand beaches to luxury amenities, MiCasa.Rentals has everything you need for an amazing Pensacola Beach getaway. Book now! #PensacolaBeach #LuxuryRental #BeachVacation #MiCasaRentals",
	"🏡 Home away from home on Pensacola Beach! Our premium vacation rentals feature full kitchens, comfortable living spaces, and steps-to-beach access. Create memories that last a lifetime with MiCasaRentals! #VacationRental #PensacolaBeach #BeachHouse #MiCasaRentals",
	"🌅 Breathtaking sunrises, crystal clear waters, and luxury accommodations - that's the MiCasa.Rentals experience! Book your Pensacola Beach vacation today and discover paradise. #PensacolaBeach #BeachLife #VacationRental #MiCasaRentals #Sunrise",
	"🎣 Adventure and relaxation await at Pensacola Beach! Whether you're fishing, swimming, or just soaking up the sun, MiCasa.Rentals provides the perfect basecamp for your beach vacation. #PensacolaBeach #BeachFun #VacationRental #MiCasaRentals",
	"🏖️ White sand beaches, emerald waters, and luxury rentals - Pensacola Beach has it all! Let MiCasa.Rentals be your gateway to the ultimate beach vacation experience. Book today! #EmeraldCoast #PensacolaBeach #LuxuryTravel #MiCasaRentals",
	"🌴 Paradise found at Pensacola Beach! Our spacious vacation rentals offer all the comforts of home with unbeatable beachfront locations. Start planning your escape with MiCasa.Rentals! #BeachParadise #PensacolaBeach #VacationRental #MiCasaRentals",
}
