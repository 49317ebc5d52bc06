package locale

// Key names a static system message.
type Key string

const (
	KeyRespondingTrouble Key = "responding_trouble"
	KeyExtractionHelp    Key = "extraction_help"
	KeyConfirmTerms      Key = "confirm_terms"
	KeyDealConfirmed     Key = "deal_confirmed"
	KeyBackToChat        Key = "back_to_chat"
	KeyDealClosed        Key = "deal_closed"
)

var messages = map[Key]map[Code]string{
	KeyRespondingTrouble: {
		English:   "Sorry, I'm having trouble responding. Please try again.",
		Hindi:     "क्षमा करें, मुझे जवाब देने में परेशानी हो रही है। कृपया पुन: प्रयास करें।",
		Bengali:   "দুঃখিত, আমার উত্তর দিতে সমস্যা হচ্ছে। অনুগ্রহ করে আবার চেষ্টা করুন।",
		Telugu:    "క్షమించండి, నాకు ప్రతిస్పందించడంలో సమస్య ఉంది. దయచేసి మళ్లీ ప్రయత్నించండి.",
		Marathi:   "क्षमस्व, मला प्रतिसाद देण्यात अडचण येत आहे. कृपया पुन्हा प्रयत्न करा.",
		Tamil:     "மன்னிக்கவும், எனக்கு பதிலளிப்பதில் சிக்கல் உள்ளது. மீண்டும் முயற்சிக்கவும்.",
		Gujarati:  "માફ કરશો, મને જવાબ આપવામાં મુશ્કેલી આવી રહી છે. કૃપા કરીને ફરી પ્રયાસ કરો.",
		Kannada:   "ಕ್ಷಮಿಸಿ, ನನಗೆ ಪ್ರತಿಕ್ರಿಯಿಸಲು ತೊಂದರೆಯಾಗುತ್ತಿದೆ. ದಯವಿಟ್ಟು ಮತ್ತೆ ಪ್ರಯತ್ನಿಸಿ.",
		Malayalam: "ക്ഷമിക്കണം, എനിക്ക് പ്രതികരിക്കാൻ പ്രശ്നമുണ്ട്. ദയവായി വീണ്ടും ശ്രമിക്കുക.",
		Punjabi:   "ਮਾਫ਼ ਕਰਨਾ, ਮੈਨੂੰ ਜਵਾਬ ਦੇਣ ਵਿੱਚ ਮੁਸ਼ਕਲ ਆ ਰਹੀ ਹੈ। ਕਿਰਪਾ ਕਰਕੇ ਦੁਬਾਰਾ ਕੋਸ਼ਿਸ਼ ਕਰੋ।",
		Urdu:      "معذرت، مجھے جواب دینے میں پریشانی ہو رہی ہے۔ براہ کرم دوبارہ کوشش کریں۔",
		Odia:      "କ୍ଷମା କରନ୍ତୁ, ମୋତେ ଉତ୍ତର ଦେବାରେ ଅସୁବିଧା ହେଉଛି। ଦୟାକରି ପୁନର୍ବାର ଚେଷ୍ଟା କରନ୍ତୁ।",
	},
	KeyExtractionHelp: {
		English:   `Please include: crop name, quantity, and price. Example: "50 quintal rice for 3000 rupees"`,
		Hindi:     `कृपया शामिल करें: फसल का नाम, मात्रा और कीमत। उदाहरण: "3000 रुपये में 50 क्विंटल चावल"`,
		Bengali:   `অনুগ্রহ করে অন্তর্ভুক্ত করুন: ফসলের নাম, পরিমাণ এবং দাম। উদাহরণ: "৩০০০ টাকায় ৫০ কুইন্টাল চাল"`,
		Telugu:    `దయచేసి చేర్చండి: పంట పేరు, పరిమాణం మరియు ధర. ఉదాహరణ: "3000 రూపాయలకు 50 క్వింటాళ్ల బియ్యం"`,
		Marathi:   `कृपया समाविष्ट करा: पीक नाव, प्रमाण आणि किंमत. उदाहरण: "३००० रुपयांमध्ये ५० क्विंटल तांदूळ"`,
		Tamil:     `தயவுசெய்து சேர்க்கவும்: பயிர் பெயர், அளவு மற்றும் விலை. உதாரணம்: "3000 ரூபாய்க்கு 50 குவிண்டால் அரிசி"`,
		Gujarati:  `કૃપા કરીને શામેલ કરો: પાકનું નામ, જથ્થો અને કિંમત. ઉદાહરણ: "૩૦૦૦ રૂપિયામાં ૫૦ ક્વિન્ટલ ચોખા"`,
		Urdu:      `براہ کرم شامل کریں: فصل کا نام، مقدار اور قیمت۔ مثال: "3000 روپے میں 50 کوئنٹل چاول"`,
		Kannada:   `ದಯವಿಟ್ಟು ಸೇರಿಸಿ: ಬೆಳೆ ಹೆಸರು, ಪ್ರಮಾಣ ಮತ್ತು ಬೆಲೆ. ಉದಾಹರಣೆ: "೩೦೦೦ ರೂಪಾಯಿಗೆ ೫೦ ಕ್ವಿಂಟಾಲ್ ಅಕ್ಕಿ"`,
		Odia:      `ଦୟାକରି ଅନ୍ତର୍ଭୁକ୍ତ କରନ୍ତୁ: ଫସଲ ନାମ, ପରିମାଣ ଏବଂ ମୂଲ୍ୟ। ଉଦାହରଣ: "3000 ଟଙ୍କାରେ 50 କ୍ୱିଣ୍ଟାଲ ଚାଉଳ"`,
		Malayalam: `ദയവായി ഉൾപ്പെടുത്തുക: വിള പേര്, അളവ്, വില. ഉദാഹരണം: "3000 രൂപയ്ക്ക് 50 ക്വിന്റൽ അരി"`,
		Punjabi:   `ਕਿਰਪਾ ਕਰਕੇ ਸ਼ਾਮਲ ਕਰੋ: ਫਸਲ ਦਾ ਨਾਮ, ਮਾਤਰਾ ਅਤੇ ਕੀਮਤ। ਉਦਾਹਰਣ: "3000 ਰੁਪਏ ਵਿੱਚ 50 ਕੁਇੰਟਲ ਚੌਲ"`,
		Assamese:  `অনুগ্ৰহ কৰি অন্তৰ্ভুক্ত কৰক: শস্যৰ নাম, পৰিমাণ আৰু মূল্য। উদাহৰণ: "৩০০০ টকাত ৫০ কুইণ্টেল চাউল"`,
		Maithili:  `कृपया शामिल करू: फसलक नाम, मात्रा आ दाम। उदाहरण: "3000 रुपैया मे 50 क्विंटल चाउर"`,
		Sanskrit:  `कृपया अन्तर्भूतं करोतु: शस्यनाम, परिमाणं, मूल्यं। उदाहरणम्: "3000 रूप्यकेषु 50 क्विण्टल तण्डुलः"`,
		Konkani:   `कृपया धरा: पिकाचें नांव, प्रमाण आनी किंमत। उदाहरण: "3000 रुपयांनी 50 क्विंटल तांदूळ"`,
		Nepali:    `कृपया समावेश गर्नुहोस्: बाली नाम, मात्रा र मूल्य। उदाहरण: "3000 रुपैयाँमा 50 क्विन्टल चामल"`,
		Dogri:     `कृपया शामल करो: फसल दा नांऽ, मात्रा ते कीमत। उदाहरण: "3000 रुपये च 50 क्विंटल चावल"`,
		Kashmiri:  `براہ کرم شامل کریں: فصل کا نام، مقدار اور قیمت۔ مثال: "3000 روپے میں 50 کوئنٹل چاول"`,
		Sindhi:    `مهرباني ڪري شامل ڪريو: فصل جو نالو، مقدار ۽ قيمت۔ مثال: "3000 رپين ۾ 50 ڪوئنٽل چانور"`,
	},
	KeyConfirmTerms: {
		English: "Confirm deal terms",
		Hindi:   "सौदे की शर्तें पक्की करें",
		Bengali: "চুক্তির শর্তাবলী নিশ্চিত করুন",
		Telugu:  "ఒప్పంద నిబంధనలను నిర్ధారించండి",
		Marathi: "व्यवहाराच्या अटी निश्चित करा",
		Tamil:   "ஒப்பந்த விதிமுறைகளை உறுதிப்படுத்தவும்",
	},
	KeyDealConfirmed: {
		English: "Deal confirmed! Invoice generated.",
		Hindi:   "सौदा पक्का! बिल तैयार हो गया।",
		Bengali: "চুক্তি নিশ্চিত! চালান তৈরি হয়েছে।",
		Telugu:  "ఒప్పందం ఖరారైంది! ఇన్వాయిస్ సిద్ధం.",
		Marathi: "व्यवहार पक्का! बीजक तयार झाले.",
		Tamil:   "ஒப்பந்தம் உறுதியானது! விலைப்பட்டியல் தயார்.",
	},
	KeyBackToChat: {
		English: "Terms reopened. Keep negotiating.",
		Hindi:   "शर्तें फिर से खुलीं। बातचीत जारी रखें।",
	},
	KeyDealClosed: {
		English: "This deal is already finalized.",
		Hindi:   "यह सौदा पहले ही पक्का हो चुका है।",
	},
}

// Message returns the static message key in code, falling back to English.
// Unknown keys yield the empty string.
func Message(key Key, code Code) string {
	byCode, ok := messages[key]
	if !ok {
		return ""
	}
	if text, ok := byCode[code]; ok {
		return text
	}
	return byCode[English]
}
